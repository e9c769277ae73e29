package core

// SeedAchievements returns the built-in achievement catalog: attribute
// growth milestones, behavior and habit rewards, long-term milestones,
// special-event unlocks, and the selectable title series.
func SeedAchievements() []Achievement {
	return []Achievement{
		// 属性成长系列
		levelSeed("int_novice", "初窥门径", "智力达到5级", "book-open", AttrInt, 5),
		levelSeed("int_scholar", "博学者", "智力达到10级", "graduation-cap", AttrInt, 10),
		levelSeed("str_beginner", "小试牛刀", "体魄达到5级", "dumbbell", AttrStr, 5),
		levelSeed("str_robust", "身强体健", "体魄达到10级", "shield", AttrStr, 10),
		levelSeed("vit_respite", "稍作休憩", "精力达到5级", "battery", AttrVit, 5),
		levelSeed("cha_encounter", "初次见面", "社交达到5级", "users", AttrCha, 5),
		levelSeed("eq_awareness", "情绪感知", "情感达到5级", "heart", AttrEQ, 5),
		levelSeed("cre_inspiration", "灵感萌芽", "创造达到5级", "palette", AttrCre, 5),

		// 行为习惯系列
		{
			ID: "first_event", Title: "初出茅庐", Description: "记录第一个人生事件", Icon: "calendar",
			Condition: Condition{Kind: CondEventCount, Threshold: 1},
		},
		{
			ID: "consistency_beacon", Title: "持续之光", Description: "连续7天记录事件", Icon: "flame",
			Condition: Condition{Kind: CondStreak, Threshold: 7},
		},
		{
			ID: "balanced_weekly", Title: "雨露均沾", Description: "一周内为所有6个属性都增加经验", Icon: "target",
			Condition: Condition{Kind: CondBalancedWeek},
		},

		// 里程碑系列
		{
			ID: "century_events", Title: "百炼成钢", Description: "累计记录100个事件", Icon: "trophy",
			Condition: Condition{Kind: CondEventCount, Threshold: 100},
		},
		{
			ID: "all_level_10", Title: "六边形战士", Description: "所有属性都达到10级", Icon: "hexagon",
			Condition: Condition{Kind: CondAllLevels, Threshold: 10},
		},
		{
			ID: "month_user", Title: "人生旅者", Description: "使用应用满30天", Icon: "map",
			Condition: Condition{Kind: CondAccountAge, Threshold: 30},
		},

		// 特殊事件系列
		{
			ID: "new_horizons", Title: "探索新境", Description: "记录一次旅行或探险经历", Icon: "compass",
			Condition: Condition{Kind: CondKeyword, Keywords: []string{"旅行", "探险", "新城市", "旅游", "出差", "远行"}},
		},
		{
			ID: "deep_thinker", Title: "灵光乍现", Description: "写下超过200字的深度感悟", Icon: "lightbulb",
			Condition: Condition{Kind: CondLongNote, Threshold: 200},
		},
		{
			ID: "helping_hand", Title: "助人为乐", Description: "记录一次帮助他人的经历", Icon: "hand-heart",
			Condition: Condition{
				Kind:      CondKeywordWithGain,
				Keywords:  []string{"帮助", "志愿", "分享", "支持", "协助", "服务"},
				GainAttrs: []AttrKey{AttrCha, AttrEQ},
			},
		},
		{
			ID: "breakthrough", Title: "突破自我", Description: "单次事件获得超过30经验值", Icon: "mountain",
			Condition: Condition{Kind: CondSingleEventExp, Threshold: 30},
		},

		// 称号系列
		titleSeed("title_int_5", "智识新秀", "智力达到5级后可获得的称号", "lightbulb", AttrInt, 5),
		titleSeed("title_int_10", "智慧大师", "智力达到10级后可获得的称号", "brain", AttrInt, 10),
		titleSeed("title_str_5", "力量新秀", "体魄达到5级后可获得的称号", "bolt", AttrStr, 5),
		titleSeed("title_str_10", "体魄王者", "体魄达到10级后可获得的称号", "shield-alt", AttrStr, 10),
		titleSeed("title_vit_5", "活力先锋", "精力达到5级后可获得的称号", "battery-full", AttrVit, 5),
		titleSeed("title_cha_5", "社交达人", "社交达到5级后可获得的称号", "user-friends", AttrCha, 5),
		titleSeed("title_eq_5", "情感专家", "情感达到5级后可获得的称号", "heartbeat", AttrEQ, 5),
		titleSeed("title_cre_5", "创意天才", "创造达到5级后可获得的称号", "paint-brush", AttrCre, 5),
	}
}

func levelSeed(id, title, description, icon string, attr AttrKey, level int) Achievement {
	return Achievement{
		ID: id, Title: title, Description: description, Icon: icon,
		Condition: Condition{Kind: CondLevel, Attr: attr, Threshold: level},
	}
}

func titleSeed(id, title, description, icon string, attr AttrKey, level int) Achievement {
	return Achievement{
		ID: id, Title: title, Description: description, Icon: icon,
		IsTitle: true, AttributeRequirement: attr, LevelRequirement: level,
	}
}
