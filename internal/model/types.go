// Package model defines shared data structures.
package model

import "time"

// WordToken is one recognised word with its timing in seconds.
type WordToken struct {
	Start float64 `json:"t0"`
	End   float64 `json:"t1"`
	Text  string  `json:"text"`
}

// Transcript is the output of a speech-to-text collaborator.
type Transcript struct {
	Text     string      `json:"text"`
	Words    []WordToken `json:"words"`
	Language string      `json:"language,omitempty"`
}

// SilenceInterval is a detected pause. Duration is End - Start.
type SilenceInterval struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// SpeakingMetrics holds the objective measures derived from one sample.
// Values are rounded when the struct is built and never changed afterwards.
type SpeakingMetrics struct {
	DurationSec     float64 `json:"duration_sec"`
	PauseCount      int     `json:"pause_count"`
	PauseTotalSec   float64 `json:"pause_total_sec"`
	SpeakingTimeSec float64 `json:"speaking_time_sec"`
	WordCount       int     `json:"word_count"`
	WPM             float64 `json:"wpm"`
	Fillers         int     `json:"fillers"`
	CohesionMarkers int     `json:"cohesion_markers"`
	ComplexityIndex int     `json:"complexity_index"`
}

// Prompt is one timed speaking exercise from the prompt catalog.
type Prompt struct {
	ID              string `json:"id" yaml:"id"`
	Title           string `json:"title" yaml:"title"`
	Text            string `json:"prompt_text" yaml:"prompt_text"`
	Audio           string `json:"audio" yaml:"audio"`
	AudioPath       string `json:"audio_path,omitempty" yaml:"-"`
	ResponseSeconds int    `json:"response_seconds" yaml:"response_seconds"`
	MaxPlaybacks    int    `json:"max_playbacks" yaml:"max_playbacks"`
	CEFRTarget      string `json:"cefr_target" yaml:"cefr_target"`
}

// ResponseWindow returns the time a learner has to answer.
func (p Prompt) ResponseWindow() time.Duration {
	return time.Duration(p.ResponseSeconds) * time.Second
}

// AssessConfig defines the settings of one assessment run.
type AssessConfig struct {
	Whisper    string
	LLM        string
	LogDir     string
	Label      string
	Notes      string
	TargetCEFR string
	NoGrade    bool
}

// HistoryFilter defines filters for history output.
type HistoryFilter struct {
	Label       string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// TargetCheck is one baseline comparison kept with an assessment.
type TargetCheck struct {
	Metric   string
	Expected string
	Actual   float64
	OK       bool
}

// TargetAggregate counts how often a baseline target was checked and missed.
type TargetAggregate struct {
	Metric   string
	Checks   int
	Failures int
}

// AssessmentRecord is one stored assessment.
type AssessmentRecord struct {
	ID             int64
	CreatedAt      time.Time
	Label          string
	Audio          string
	Whisper        string
	LLM            string
	Notes          string
	TargetCEFR     string
	Metrics        SpeakingMetrics
	Overall        *float64
	BaselinePassed *bool
	Targets        []TargetCheck
	ReportPath     string
}

// AttemptRecord stores the outcome of one timed prompt attempt.
type AttemptRecord struct {
	AttemptID  string
	PromptID   string
	StartedAt  time.Time
	EndedAt    time.Time
	State      string
	AudioPath  string
	PlaysUsed  int
	ChunkBytes int
}
