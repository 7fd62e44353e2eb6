package sleeper

type userEnvelope struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type leagueEnvelope struct {
	LeagueID    string         `json:"league_id"`
	Name        string         `json:"name"`
	Season      string         `json:"season"`
	Sport       string         `json:"sport"`
	Status      string         `json:"status"`
	TotalTeams  int            `json:"total_rosters"`
	ScoringType string         `json:"scoring_type"`
	Settings    map[string]any `json:"settings"`
}

type rosterEnvelope struct {
	RosterID int            `json:"roster_id"`
	OwnerID  string         `json:"owner_id"`
	Players  []string       `json:"players"`
	Starters []string       `json:"starters"`
	Settings rosterSettings `json:"settings"`
}

type rosterSettings struct {
	Wins             int `json:"wins"`
	Losses           int `json:"losses"`
	Ties             int `json:"ties"`
	Fpts             int `json:"fpts"`
	FptsDecimal      int `json:"fpts_decimal"`
	FptsAgainst      int `json:"fpts_against"`
	FptsAgainstDecim int `json:"fpts_against_decimal"`
}

type leagueUserEnvelope struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Metadata    struct {
		TeamName string `json:"team_name"`
	} `json:"metadata"`
}

type catalogPlayer struct {
	PlayerID  string `json:"player_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Team      string `json:"team"`
	Position  string `json:"position"`
	Number    *int   `json:"number"`
}
