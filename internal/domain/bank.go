package domain

import "fmt"

// QuestionBank is a seedable set of topics and their questions.
type QuestionBank struct {
	Topics []BankTopic `yaml:"topics"`
}

type BankTopic struct {
	Slug        string         `yaml:"slug"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Category    string         `yaml:"category"`
	Difficulty  string         `yaml:"difficulty"`
	Questions   []BankQuestion `yaml:"questions"`
}

type BankQuestion struct {
	Text        string   `yaml:"text"`
	Correct     string   `yaml:"correct"`
	Incorrect   []string `yaml:"incorrect"`
	Explanation string   `yaml:"explanation"`
}

// Validate reports the first topic or question that cannot be played.
func (b QuestionBank) Validate() error {
	seen := make(map[string]bool, len(b.Topics))
	for i, t := range b.Topics {
		if t.Slug == "" || t.Name == "" {
			return fmt.Errorf("topic %d: slug and name are required", i)
		}
		if seen[t.Slug] {
			return fmt.Errorf("topic %q: duplicate slug", t.Slug)
		}
		seen[t.Slug] = true
		for j, q := range t.Questions {
			if q.Text == "" || q.Correct == "" {
				return fmt.Errorf("topic %q question %d: text and correct answer are required", t.Slug, j)
			}
			if len(q.Incorrect) == 0 {
				return fmt.Errorf("topic %q question %d: at least one incorrect answer is required", t.Slug, j)
			}
		}
	}
	return nil
}
