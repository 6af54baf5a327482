package domain

// Quiz is the generated study artifact: a short summary plus a list of
// multiple-choice questions. An empty Questions slice is a valid quiz.
type Quiz struct {
	Summary   string         `json:"summary"`
	Questions []QuizQuestion `json:"questions"`
}

// QuizQuestion is one multiple-choice question. Answer is expected to be a
// member of Options but membership is not enforced; a non-member answer is
// tolerated and simply never matches any selection.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// CorrectCount compares selected answers against the answer key. An answer
// string that never appears among a question's options simply never
// matches; that is not an error here or at parse time.
func (q Quiz) CorrectCount(answers map[int]string) int {
	correct := 0
	for i, question := range q.Questions {
		if selected, ok := answers[i]; ok && selected == question.Answer {
			correct++
		}
	}
	return correct
}

// Clone returns a deep copy so a stored quiz can be handed out without
// sharing option slices with callers.
func (q Quiz) Clone() Quiz {
	out := Quiz{Summary: q.Summary}
	if q.Questions != nil {
		out.Questions = make([]QuizQuestion, len(q.Questions))
		for i, question := range q.Questions {
			cp := question
			cp.Options = append([]string(nil), question.Options...)
			out.Questions[i] = cp
		}
	}
	return out
}
