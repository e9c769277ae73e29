package core

import "time"

// NoticeType enumerates progression notifications published on the bus.
type NoticeType string

const (
	NoticeExpApplied          NoticeType = "exp_applied"
	NoticeLevelUp             NoticeType = "level_up"
	NoticeAchievementUnlocked NoticeType = "achievement_unlocked"
	NoticeAttributeDecayed    NoticeType = "attribute_decayed"
	NoticeItemUsed            NoticeType = "item_used"
	NoticeProjectCompleted    NoticeType = "project_completed"
)

// Notice is an immutable progression notification.
type Notice struct {
	Type          NoticeType `json:"type"`
	Time          time.Time  `json:"time"`
	UserID        UserID     `json:"user_id"`
	Attribute     AttrKey    `json:"attribute,omitempty"`
	Delta         int        `json:"delta,omitempty"`
	Exp           int        `json:"exp,omitempty"`
	Level         int        `json:"level,omitempty"`
	AchievementID string     `json:"achievement_id,omitempty"`
	ItemID        string     `json:"item_id,omitempty"`
	ProjectID     string     `json:"project_id,omitempty"`
	EventID       string     `json:"event_id,omitempty"`
}

func NewExpApplied(user UserID, attr AttrKey, delta, exp int) Notice {
	return Notice{Type: NoticeExpApplied, Time: time.Now().UTC(), UserID: user, Attribute: attr, Delta: delta, Exp: exp}
}

func NewLevelUp(user UserID, attr AttrKey, level int) Notice {
	return Notice{Type: NoticeLevelUp, Time: time.Now().UTC(), UserID: user, Attribute: attr, Level: level}
}

func NewAchievementUnlocked(user UserID, achievementID string) Notice {
	return Notice{Type: NoticeAchievementUnlocked, Time: time.Now().UTC(), UserID: user, AchievementID: achievementID}
}

func NewAttributeDecayed(user UserID, attr AttrKey, amount, exp int) Notice {
	return Notice{Type: NoticeAttributeDecayed, Time: time.Now().UTC(), UserID: user, Attribute: attr, Delta: -amount, Exp: exp}
}

func NewItemUsed(user UserID, itemID, eventID string) Notice {
	return Notice{Type: NoticeItemUsed, Time: time.Now().UTC(), UserID: user, ItemID: itemID, EventID: eventID}
}

func NewProjectCompleted(user UserID, projectID string) Notice {
	return Notice{Type: NoticeProjectCompleted, Time: time.Now().UTC(), UserID: user, ProjectID: projectID}
}
