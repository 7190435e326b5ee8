package promptlib

// Session holds one user's in-progress answers for a selected form. It is
// owned by a single request or interactive loop and is not safe for
// concurrent use.
type Session struct {
	form    Form
	answers Answers
}

// NewSession selects form and seeds its defaults.
func NewSession(form Form) *Session {
	s := &Session{}
	s.Select(form)
	return s
}

// Select switches to another form, discarding the current answers.
func (s *Session) Select(form Form) {
	s.form = Form{Template: form.Template, Questions: SortQuestions(form.Questions)}
	s.answers = InitialAnswers(s.form.Questions)
}

// Set records an answer. Answers to questions that later become hidden are
// kept so they reappear when the question is shown again.
func (s *Session) Set(variable, value string) {
	s.answers[variable] = value
}

// Answers returns a copy of the current answers.
func (s *Session) Answers() Answers {
	return s.answers.Clone()
}

// Visible returns the questions shown for the current answers, judged on
// the same normalized answers that Missing and Submit validate.
func (s *Session) Visible() []Question {
	return VisibleQuestions(s.form.Questions, NormalizeAnswers(s.form.Questions, s.answers))
}

// Missing returns the required visible variables still unanswered.
func (s *Session) Missing() []string {
	return Validate(s.form.Questions, NormalizeAnswers(s.form.Questions, s.answers))
}

// Submit validates and renders. On success the answers are discarded and
// the form's defaults are seeded again.
func (s *Session) Submit() Result {
	res := Submit(s.form, s.answers)
	if res.OK {
		s.answers = InitialAnswers(s.form.Questions)
	}
	return res
}
