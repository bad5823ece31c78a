package gemini

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const (
	defaultOverallScore      = 70
	defaultTechnicalAccuracy = "Good technical understanding demonstrated"
	defaultQuestionScore     = 14
	defaultQuestionFeedback  = "Good answer provided"
	defaultImprovement       = "Continue practicing interview skills"
	defaultStrength          = "Good communication skills"

	maxOverallScore  = 100
	maxQuestionScore = 20
)

var (
	numberedLine   = regexp.MustCompile(`^\d+\.`)
	numberedPrefix = regexp.MustCompile(`^\d+\.\s*`)

	overallScoreRe      = regexp.MustCompile(`OVERALL_SCORE:\s*(\d+)`)
	technicalAccuracyRe = regexp.MustCompile(`TECHNICAL_ACCURACY:[ \t]*([^\r\n]+)`)
	improvementsRe      = regexp.MustCompile(`(?s)IMPROVEMENTS:[ \t]*(.*?)(?:\nSTRENGTHS:|$)`)
	strengthsRe         = regexp.MustCompile(`(?s)STRENGTHS:\s*(.+)$`)

	questionRes = compileQuestionPatterns(domain.MaxScoredQuestions)
)

type questionPatterns struct {
	score, feedback, accurate *regexp.Regexp
}

func compileQuestionPatterns(n int) []questionPatterns {
	out := make([]questionPatterns, n)
	for i := range out {
		q := i + 1
		out[i] = questionPatterns{
			score:    regexp.MustCompile(fmt.Sprintf(`QUESTION_%d_SCORE:\s*(\d+)`, q)),
			feedback: regexp.MustCompile(fmt.Sprintf(`QUESTION_%d_FEEDBACK:[ \t]*([^\r\n]+)`, q)),
			accurate: regexp.MustCompile(fmt.Sprintf(`QUESTION_%d_ACCURATE:\s*(true|false)`, q)),
		}
	}
	return out
}

// ParseQuestions returns the numbered lines of text with their numbering
// stripped, in order, at most MaxQuestions. Lines whose remainder is blank are
// skipped. An empty result means the caller should fall back.
func ParseQuestions(text string) []string {
	out := make([]string, 0, MaxQuestions)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !numberedLine.MatchString(line) {
			continue
		}
		q := strings.TrimSpace(numberedPrefix.ReplaceAllString(line, ""))
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}

// fieldRule extracts one field. A rule whose pattern is absent, or whose
// capture set rejects, falls back to its own default only.
type fieldRule struct {
	re  *regexp.Regexp
	set func(capture string) bool
	def func()
}

func applyRules(text string, rules []fieldRule) {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil || len(m) < 2 || !r.set(m[1]) {
			r.def()
		}
	}
}

// ParseFeedback maps the model's FIELD: value reply onto a report with one
// entry per answer. Only the first domain.MaxScoredQuestions answers are
// looked up in the text; later answers keep the per-question defaults.
// A panic anywhere in extraction is returned as an error so the caller can
// substitute the full fallback report.
func ParseFeedback(text string, answers []domain.AnswerPair) (report domain.FeedbackReport, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			report = domain.FeedbackReport{}
			err = fmt.Errorf("parse feedback: %v", rec)
		}
	}()

	report.QuestionFeedbacks = make([]domain.QuestionFeedback, len(answers))
	rules := []fieldRule{
		{
			re:  overallScoreRe,
			set: func(s string) bool { return setInt(&report.OverallScore, s, maxOverallScore) },
			def: func() { report.OverallScore = defaultOverallScore },
		},
		{
			re:  technicalAccuracyRe,
			set: func(s string) bool { return setText(&report.TechnicalAccuracy, s) },
			def: func() { report.TechnicalAccuracy = defaultTechnicalAccuracy },
		},
		{
			re:  improvementsRe,
			set: func(s string) bool { return setList(&report.AreasForImprovement, s) },
			def: func() { report.AreasForImprovement = []string{defaultImprovement} },
		},
		{
			re:  strengthsRe,
			set: func(s string) bool { return setList(&report.Strengths, s) },
			def: func() { report.Strengths = []string{defaultStrength} },
		},
	}

	for i, a := range answers {
		qf := &report.QuestionFeedbacks[i]
		qf.Question = a.Question
		qf.Answer = a.Answer
		qf.Score = defaultQuestionScore
		qf.Feedback = defaultQuestionFeedback
		qf.Accurate = true
		if i >= len(questionRes) {
			continue
		}
		p := questionRes[i]
		rules = append(rules,
			fieldRule{
				re:  p.score,
				set: func(s string) bool { return setInt(&qf.Score, s, maxQuestionScore) },
				def: func() { qf.Score = defaultQuestionScore },
			},
			fieldRule{
				re:  p.feedback,
				set: func(s string) bool { return setText(&qf.Feedback, s) },
				def: func() { qf.Feedback = defaultQuestionFeedback },
			},
			fieldRule{
				re: p.accurate,
				set: func(s string) bool {
					v, err := strconv.ParseBool(s)
					if err != nil {
						return false
					}
					qf.Accurate = v
					return true
				},
				def: func() { qf.Accurate = true },
			},
		)
	}

	applyRules(text, rules)
	return report, nil
}

// setInt parses a non-negative integer and clamps it to max.
func setInt(dst *int, s string, max int) bool {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return false
	}
	if v > max {
		v = max
	}
	*dst = v
	return true
}

func setText(dst *string, s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	*dst = s
	return true
}

func setList(dst *[]string, s string) bool {
	items := splitList(s)
	if len(items) == 0 {
		return false
	}
	*dst = items
	return true
}

// splitList splits on '|', trims entries and drops empty ones.
func splitList(s string) []string {
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
