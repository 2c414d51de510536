package model

// UserProfile carries the declared interests used to recommend
// templates. Profile storage belongs to the account service; callers
// pass the relevant fields through with the request.
type UserProfile struct {
	UserID         string   `json:"user_id"`
	CraftInterests []string `json:"craft_interests"`
	SkillLevel     string   `json:"skill_level"` // beginner, intermediate, advanced
}
