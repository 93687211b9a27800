package journal

import (
	"encoding/json"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

type Role string

const (
	RoleKing  Role = "king"
	RoleQueen Role = "queen"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Task is a morning plan item. ID is opaque and unique within the document.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Category      string     `json:"category"`
	Priority      Priority   `json:"priority"`
	Status        TaskStatus `json:"status"`
	EstimatedTime *float64   `json:"estimatedTime,omitempty"` // minutes
	Notes         string     `json:"notes,omitempty"`
}

type MorningEntry struct {
	SessionName string `json:"sessionName,omitempty"`
	Location    string `json:"location,omitempty"`
	Tasks       []Task `json:"tasks"`
}

// EveningEntry is the end-of-day reflection. Mood and EnergyLevel are 1..5.
type EveningEntry struct {
	Mood        int    `json:"mood"`
	EnergyLevel int    `json:"energyLevel"`
	Success     string `json:"success"`
	Challenges  string `json:"challenges"`
	Strategy    string `json:"strategy"`
}

// DayLog holds one calendar day. Either half may be absent.
type DayLog struct {
	Morning *MorningEntry `json:"morning"`
	Evening *EveningEntry `json:"evening"`
}

type StudyLog struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
	Note    string `json:"note,omitempty"`
}

type Course struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Category  string     `json:"category,omitempty"`
	Progress  int        `json:"progress"`
	Logs      []StudyLog `json:"logs"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Learning struct {
	Courses []Course `json:"courses"`
	Streak  int      `json:"streak"`
}

type Idea struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Lesson struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type GoodDeed struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Relationship struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Relation    string    `json:"relation,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	LastContact string    `json:"lastContact,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Time      string    `json:"time,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Document is the single persisted root object. LastUpdated is stamped on
// every local save and is the key compared during sync reconciliation.
type Document struct {
	Logs          map[string]DayLog `json:"logs"`
	Learning      Learning          `json:"learning"`
	Ideas         []Idea            `json:"ideas"`
	Lessons       []Lesson          `json:"lessons"`
	DailyGood     []GoodDeed        `json:"dailyGood"`
	Relationships []Relationship    `json:"relationships"`
	Events        []Event           `json:"events"`
	Settings      Settings          `json:"settings"`
	LastUpdated   *time.Time        `json:"lastUpdated"`
}

// UnmarshalJSON seeds Settings with defaults so documents written before a
// settings key existed still decode to sensible preferences.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	p := plain{Settings: DefaultSettings()}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Document(p)
	return nil
}

// SyncEnvelope is the upload body for POST /sync.
type SyncEnvelope struct {
	AppData        *Document `json:"appData"`
	LocalTimestamp string    `json:"localTimestamp"`
}

// DownloadResponse is the body of GET /sync. AppData is nil when the
// account has never uploaded.
type DownloadResponse struct {
	AppData    *Document  `json:"appData"`
	LastSynced *time.Time `json:"lastSynced,omitempty"`
}
