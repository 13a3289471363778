package catalog

import "github.com/blank-marketing/blank/internal/domain"

// Default returns the catalog shipped with the dashboard.
// Each call returns fresh slices so callers may sort or edit them freely.
func Default() *Catalog {
	return &Catalog{
		Ranks: []domain.Rank{
			{
				ID: "sprout", Name: "새싹 블로거", MinXP: 0, Color: "#22c55e", Icon: "🌱",
				Benefits: []string{"기본 분석 도구", "일일 미션"},
			},
			{
				ID: "bronze", Name: "브론즈 블로거", MinXP: 1000, Color: "#b45309", Icon: "🥉",
				Benefits: []string{"키워드 분석 1회 추가", "브론즈 배지"},
			},
			{
				ID: "silver", Name: "실버 블로거", MinXP: 5000, Color: "#9ca3af", Icon: "🥈",
				Benefits: []string{"콘텐츠 수명 분석", "실버 배지"},
			},
			{
				ID: "gold", Name: "골드 블로거", MinXP: 15000, Color: "#eab308", Icon: "🥇",
				Benefits: []string{"경쟁 블로그 비교", "골드 배지", "우선 고객 지원"},
			},
			{
				ID: "diamond", Name: "다이아몬드 블로거", MinXP: 40000, Color: "#38bdf8", Icon: "💎",
				Benefits: []string{"모든 프리미엄 도구", "다이아몬드 배지", "신규 기능 우선 체험"},
			},
		},

		Achievements: []domain.Achievement{
			{ID: "first_step", Name: "첫 걸음", Description: "처음으로 XP를 획득했어요", RequiredXP: 10, Icon: "👣"},
			{ID: "xp_100", Name: "워밍업", Description: "누적 100 XP 달성", RequiredXP: 100, Icon: "🔥"},
			{ID: "xp_500", Name: "꾸준한 블로거", Description: "누적 500 XP 달성", RequiredXP: 500, Icon: "📝"},
			{ID: "xp_1000", Name: "브론즈 입성", Description: "누적 1,000 XP 달성", RequiredXP: 1000, Icon: "🥉"},
			{ID: "xp_3000", Name: "성장 가속", Description: "누적 3,000 XP 달성", RequiredXP: 3000, Icon: "🚀"},
			{ID: "xp_5000", Name: "실버 입성", Description: "누적 5,000 XP 달성", RequiredXP: 5000, Icon: "🥈"},
			{ID: "xp_15000", Name: "골드 입성", Description: "누적 15,000 XP 달성", RequiredXP: 15000, Icon: "🥇"},
			{ID: "xp_40000", Name: "전설의 블로거", Description: "누적 40,000 XP 달성", RequiredXP: 40000, Icon: "👑"},
		},

		Rewards: []domain.Reward{
			{
				ID: "extra_analysis", Name: "추가 분석 1회", Description: "블로그 지수 분석을 한 번 더 할 수 있어요",
				Cost: 200, Type: domain.RewardBonusAnalysis, Icon: "🔍", Quantity: 1,
			},
			{
				ID: "extra_analysis_5", Name: "추가 분석 5회", Description: "블로그 지수 분석 5회 묶음",
				Cost: 800, Type: domain.RewardBonusAnalysis, Icon: "🔎", Quantity: 5,
			},
			{
				ID: "premium_trial_3d", Name: "프리미엄 3일 체험", Description: "프리미엄 도구를 3일간 사용해요",
				Cost: 1000, Type: domain.RewardPremiumTrial, Icon: "⭐", TrialDays: 3,
			},
			{
				ID: "premium_trial_7d", Name: "프리미엄 7일 체험", Description: "프리미엄 도구를 7일간 사용해요",
				Cost: 2000, Type: domain.RewardPremiumTrial, Icon: "🌟", TrialDays: 7,
			},
		},

		Missions: []domain.DailyMission{
			{ID: "generate_title", Name: "블로그 제목 생성하기", Icon: "✏️", XPReward: 20},
			{ID: "keyword_research", Name: "키워드 분석하기", Icon: "🔑", XPReward: 30},
			{ID: "content_lifespan", Name: "콘텐츠 수명 분석하기", Icon: "⏳", XPReward: 30},
			{ID: "index_check", Name: "블로그 지수 확인하기", Icon: "📊", XPReward: 20},
			{ID: "persona_update", Name: "페르소나 업데이트하기", Icon: "🧑‍💻", XPReward: 50},
		},

		Login: domain.LoginRules{
			BaseXP: 10,
			Milestones: map[int]int64{
				3:  30,
				7:  100,
				14: 200,
				30: 500,
			},
		},
	}
}
