package espn

type fanEnvelope struct {
	Preferences []fanPreference `json:"preferences"`
}

type fanPreference struct {
	MetaData struct {
		Entry struct {
			SeasonID int `json:"seasonId"`
			Groups   []struct {
				GroupID   int64  `json:"groupID"`
				GroupName string `json:"groupName"`
			} `json:"groups"`
		} `json:"entry"`
	} `json:"metaData"`
}

type leagueEnvelope struct {
	ID       int64 `json:"id"`
	SeasonID int   `json:"seasonId"`
	Settings struct {
		Name string `json:"name"`
		Size int    `json:"size"`
	} `json:"settings"`
	ScoringPeriodID int          `json:"scoringPeriodId"`
	Teams           []teamEntry  `json:"teams"`
	Members         []memberItem `json:"members"`
}

type memberItem struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type teamEntry struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Nickname    string   `json:"nickname"`
	Owners      []string `json:"owners"`
	PlayoffSeed int      `json:"playoffSeed"`
	Record      struct {
		Overall struct {
			Wins          int     `json:"wins"`
			Losses        int     `json:"losses"`
			Ties          int     `json:"ties"`
			PointsFor     float64 `json:"pointsFor"`
			PointsAgainst float64 `json:"pointsAgainst"`
		} `json:"overall"`
	} `json:"record"`
	Roster struct {
		Entries []rosterEntry `json:"entries"`
	} `json:"roster"`
}

type rosterEntry struct {
	LineupSlotID    int `json:"lineupSlotId"`
	PlayerPoolEntry struct {
		Player struct {
			ID                int64  `json:"id"`
			FullName          string `json:"fullName"`
			FirstName         string `json:"firstName"`
			LastName          string `json:"lastName"`
			DefaultPositionID int    `json:"defaultPositionId"`
			ProTeamID         int    `json:"proTeamId"`
			Jersey            string `json:"jersey"`
		} `json:"player"`
	} `json:"playerPoolEntry"`
}

var positionByID = map[int]string{
	1:  "QB",
	2:  "RB",
	3:  "WR",
	4:  "TE",
	5:  "K",
	16: "DST",
}

var proTeamAbbrevByID = map[int]string{
	1:  "ATL",
	2:  "BUF",
	3:  "CHI",
	4:  "CIN",
	5:  "CLE",
	6:  "DAL",
	7:  "DEN",
	8:  "DET",
	9:  "GB",
	10: "TEN",
	11: "IND",
	12: "KC",
	13: "LV",
	14: "LAR",
	15: "MIA",
	16: "MIN",
	17: "NE",
	18: "NO",
	19: "NYG",
	20: "NYJ",
	21: "PHI",
	22: "ARI",
	23: "PIT",
	24: "LAC",
	25: "SF",
	26: "SEA",
	27: "TB",
	28: "WSH",
	29: "CAR",
	30: "JAX",
	33: "BAL",
	34: "HOU",
}

// Lineup slot ids that mean the player is in the starting lineup rather
// than on the bench (20) or injured reserve (21).
func isStarterSlot(slotID int) bool {
	return slotID != 20 && slotID != 21
}
