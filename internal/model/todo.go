package model

// Todo is a single task record owned by the remote collection resource.
// ID is assigned by the server; Text never changes after creation.
type Todo struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}
