package catalog

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/KuramaMr/formation-platform/core"
)

// Program is a training offering owned by exactly one instructor.
type Program struct {
	ID          string    `json:"id" mapstructure:"id"`
	Title       string    `json:"title" mapstructure:"title"`
	Description string    `json:"description" mapstructure:"description"`
	OwnerID     string    `json:"owner_id" mapstructure:"ownerId"`
	CreatedAt   time.Time `json:"created_at" mapstructure:"createdAt"` // UTC
	UpdatedAt   time.Time `json:"updated_at" mapstructure:"updatedAt"` // UTC
}

func (p Program) doc() core.Document {
	return core.Document{
		"title":       p.Title,
		"description": p.Description,
		"ownerId":     p.OwnerID,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
}

// Unit is a content module inside a Program. Order is a positive index used
// for display ordering; it is not guaranteed unique across a Program's Units.
type Unit struct {
	ID           string      `json:"id" mapstructure:"id"`
	ProgramID    string      `json:"program_id" mapstructure:"formationId"`
	Title        string      `json:"title" mapstructure:"title"`
	Order        int         `json:"order" mapstructure:"ordre"`
	Content      string      `json:"content" mapstructure:"contenu"`
	AttachmentID null.String `json:"attachment_id" mapstructure:"attachmentId"`
}

func (u Unit) doc() core.Document {
	doc := core.Document{
		"formationId": u.ProgramID,
		"title":       u.Title,
		"ordre":       u.Order,
		"contenu":     u.Content,
	}
	if u.AttachmentID.Valid {
		doc["attachmentId"] = u.AttachmentID.String
	}
	return doc
}

// Question is a value object; Answer is the zero-based index of the correct
// option.
type Question struct {
	Text    string   `json:"text" mapstructure:"text"`
	Options []string `json:"options" mapstructure:"options"`
	Answer  int      `json:"answer" mapstructure:"answer"`
}

// Assessment is a quiz attached to exactly one Unit.
type Assessment struct {
	ID        string     `json:"id" mapstructure:"id"`
	UnitID    string     `json:"unit_id" mapstructure:"coursId"`
	Title     string     `json:"title" mapstructure:"title"`
	Questions []Question `json:"questions" mapstructure:"questions"`
}

func (a Assessment) doc() core.Document {
	qs := make([]interface{}, 0, len(a.Questions))
	for _, q := range a.Questions {
		opts := make([]interface{}, 0, len(q.Options))
		for _, o := range q.Options {
			opts = append(opts, o)
		}
		qs = append(qs, map[string]interface{}{
			"text":    q.Text,
			"options": opts,
			"answer":  q.Answer,
		})
	}
	return core.Document{
		"coursId":   a.UnitID,
		"title":     a.Title,
		"questions": qs,
	}
}

// AssessmentResult is one learner's completed attempt; immutable once created.
type AssessmentResult struct {
	ID           string    `json:"id" mapstructure:"id"`
	AssessmentID string    `json:"assessment_id" mapstructure:"quizId"`
	LearnerID    string    `json:"learner_id" mapstructure:"userId"`
	Answers      []int     `json:"answers" mapstructure:"answers"`
	Score        float64   `json:"score" mapstructure:"score"` // percentage
	CreatedAt    time.Time `json:"created_at" mapstructure:"createdAt"`
}

func (r AssessmentResult) doc() core.Document {
	answers := make([]interface{}, 0, len(r.Answers))
	for _, a := range r.Answers {
		answers = append(answers, a)
	}
	return core.Document{
		"quizId":    r.AssessmentID,
		"userId":    r.LearnerID,
		"answers":   answers,
		"score":     r.Score,
		"createdAt": r.CreatedAt,
	}
}

// NewProgram contains information needed to create a new Program.
type NewProgram struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

func (np *NewProgram) Validate() error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	return core.TranslateError(core.Validate.Struct(np))
}

// UpdateProgram defines what information may be provided to modify an existing Program.
type UpdateProgram struct {
	Title       string `json:"title" validate:"omitempty,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

func (up *UpdateProgram) Validate(orig Program) error {
	title := core.CleanString(up.Title)
	if title != "" {
		up.Title = title
	} else {
		up.Title = orig.Title
	}
	desc := core.CleanString(up.Description)
	if desc != "" {
		up.Description = desc
	} else {
		up.Description = orig.Description
	}
	return core.TranslateError(core.Validate.Struct(up))
}

// NewUnit contains information needed to create a new Unit.
type NewUnit struct {
	ProgramID    string      `json:"program_id" validate:"required"`
	Title        string      `json:"title" validate:"required,max=200"`
	Order        int         `json:"order" validate:"required,gt=0"`
	Content      string      `json:"content"`
	AttachmentID null.String `json:"attachment_id"`
}

func (nu *NewUnit) Validate() error {
	nu.Title = core.CleanString(nu.Title)
	return core.TranslateError(core.Validate.Struct(nu))
}

// NewAssessment contains information needed to create a new Assessment.
type NewAssessment struct {
	UnitID    string     `json:"unit_id" validate:"required"`
	Title     string     `json:"title" validate:"required,max=200"`
	Questions []Question `json:"questions" validate:"required,min=1"`
}

func (na *NewAssessment) Validate() error {
	na.Title = core.CleanString(na.Title)
	if err := core.TranslateError(core.Validate.Struct(na)); err != nil {
		return err
	}
	// answer indexes are zero-based into Options
	for i, q := range na.Questions {
		if len(q.Options) < 2 || q.Answer < 0 || q.Answer >= len(q.Options) {
			return core.NewValidationError(
				errInvalidQuestion,
				core.FieldError{Field: "questions", Error: errInvalidQuestion.Error()},
			)
		}
		na.Questions[i].Text = core.CleanString(q.Text)
	}
	return nil
}

// NewResult is a learner's submitted attempt; the score is computed
// server-side, never accepted from the caller.
type NewResult struct {
	AssessmentID string `json:"assessment_id" validate:"required"`
	Answers      []int  `json:"answers" validate:"required"`
}

func (nr *NewResult) Validate() error {
	return core.TranslateError(core.Validate.Struct(nr))
}
