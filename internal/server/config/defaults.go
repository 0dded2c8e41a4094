package config

// DefaultTracks are the OpenGov tracks mirrored by default.
func DefaultTracks() []Track {
	return []Track{
		{Name: "root", ID: 0},
		{Name: "wish-for-change", ID: 2},
		{Name: "treasurer", ID: 11},
		{Name: "small-tipper", ID: 30},
		{Name: "big-tipper", ID: 31},
		{Name: "small-spender", ID: 32},
		{Name: "medium-spender", ID: 33},
		{Name: "big-spender", ID: 34},
	}
}

// DefaultCategories is the keyword table applied to sources without native
// categories. Keywords are matched after normalization, so they are written
// lower-case without punctuation.
func DefaultCategories() map[string][]string {
	return map[string][]string{
		"Events":         {"hackathon", "conference", "summit", "meetup", "workshop", "event"},
		"Education":      {"education", "course", "academy", "tutorial", "bootcamp"},
		"Marketing":      {"marketing", "campaign", "ambassador", "community", "social media"},
		"Development":    {"development", "sdk", "tooling", "runtime", "parachain", "infrastructure"},
		"Media":          {"podcast", "video", "documentary", "newsletter", "media"},
		"Governance":     {"governance", "referendum", "opengov", "delegation", "treasury"},
		"Wallets":        {"wallet"},
		"Research":       {"research", "audit", "analysis", "report"},
		"Liquidity":      {"liquidity", "defi", "bounty", "incentive"},
		"Infrastructure": {"node", "validator", "rpc", "indexer"},
	}
}
