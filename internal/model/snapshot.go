package model

// Game is the metadata of a running simulation.
type Game struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	CurrentRound int    `json:"currentRound"`
}

// Team is the player's team as reported by the game server.
type Team struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	Budget         float64 `json:"budgetRemaining"`
	StartingBudget float64 `json:"startingBudget"`
	Morale         int     `json:"moraleLevel"`
}

// Snapshot is the full game state fetched at the start of a cycle.
type Snapshot struct {
	Game           Game                 `json:"game"`
	Team           Team                 `json:"team"`
	Incidents      []Incident           `json:"incidents"`
	ChangeRequests []ChangeRequest      `json:"changeRequests"`
	Plans          []ImplementationPlan `json:"plans"`
}
