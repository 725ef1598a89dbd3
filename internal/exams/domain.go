package exams

import "time"

// StudyPlan is the follow-up plan inside an AI-style evaluation block.
type StudyPlan struct {
	FocusAreas           []string `json:"focusAreas"`
	PracticeQuestions    int      `json:"practiceQuestions"`
	EstimatedImprovement string   `json:"estimatedImprovement"`
}

// Evaluation is the optional free-form assessment attached to a result.
type Evaluation struct {
	Strengths       []string  `json:"strengths"`
	Weaknesses      []string  `json:"weaknesses"`
	Recommendations []string  `json:"recommendations"`
	StudyPlan       StudyPlan `json:"studyPlan"`
}

// Result is a timed exam attempt. Results are immutable once saved; the only
// later mutation is deletion by the owner or an admin.
type Result struct {
	ID                  string         `json:"id"`
	AccountID           string         `json:"accountId"`
	ExamType            string         `json:"examType"`
	ExamDate            time.Time      `json:"examDate"`
	TotalQuestions      int            `json:"totalQuestions"`
	CorrectAnswers      int            `json:"correctAnswers"`
	WrongAnswers        int            `json:"wrongAnswers"`
	UnansweredQuestions int            `json:"unansweredQuestions"`
	TotalTime           int            `json:"totalTime"`
	AverageTime         float64        `json:"averageTime"`
	Score               int            `json:"score"`
	Evaluation          *Evaluation    `json:"evaluation,omitempty"`
	Answers             map[int]string `json:"answers"`
	QuestionTimes       map[int]int    `json:"questionTimes"`
}
