package yahoo

type leaguesEnvelope struct {
	FantasyContent struct {
		Users []struct {
			User struct {
				GUID  string `json:"guid"`
				Games []struct {
					Game struct {
						GameKey string `json:"game_key"`
						Code    string `json:"code"`
						Season  string `json:"season"`
						Leagues []struct {
							League leagueItem `json:"league"`
						} `json:"leagues"`
					} `json:"game"`
				} `json:"games"`
			} `json:"user"`
		} `json:"users"`
	} `json:"fantasy_content"`
}

type leagueItem struct {
	LeagueKey   string `json:"league_key"`
	LeagueID    string `json:"league_id"`
	Name        string `json:"name"`
	Season      string `json:"season"`
	NumTeams    int    `json:"num_teams"`
	ScoringType string `json:"scoring_type"`
}

type teamsEnvelope struct {
	FantasyContent struct {
		League struct {
			LeagueKey string `json:"league_key"`
			Teams     []struct {
				Team teamItem `json:"team"`
			} `json:"teams"`
		} `json:"league"`
	} `json:"fantasy_content"`
}

type teamItem struct {
	TeamKey  string `json:"team_key"`
	TeamID   string `json:"team_id"`
	Name     string `json:"name"`
	Managers []struct {
		Manager struct {
			GUID     string `json:"guid"`
			Nickname string `json:"nickname"`
		} `json:"manager"`
	} `json:"managers"`
	TeamStandings struct {
		Rank          int    `json:"rank"`
		PointsFor     string `json:"points_for"`
		PointsAgainst string `json:"points_against"`
		OutcomeTotals struct {
			Wins   int `json:"wins"`
			Losses int `json:"losses"`
			Ties   int `json:"ties"`
		} `json:"outcome_totals"`
	} `json:"team_standings"`
	Roster struct {
		Players []struct {
			Player playerItem `json:"player"`
		} `json:"players"`
	} `json:"roster"`
}

type playerItem struct {
	PlayerKey string `json:"player_key"`
	PlayerID  string `json:"player_id"`
	Name      struct {
		Full  string `json:"full"`
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	EditorialTeamAbbr string `json:"editorial_team_abbr"`
	DisplayPosition   string `json:"display_position"`
	UniformNumber     string `json:"uniform_number"`
	SelectedPosition  struct {
		Position string `json:"position"`
	} `json:"selected_position"`
}

type tokenEnvelope struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
