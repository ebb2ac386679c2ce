package domain

import (
	"fmt"
	"sort"
	"strings"
)

type Category string

// QuestionKey identifies a question within a dataset.
type QuestionKey struct {
	Category Category
	Text     string
}

func (k QuestionKey) String() string {
	return fmt.Sprintf("%s/%s", k.Category, k.Text)
}

type Question struct {
	Key         QuestionKey
	GroundTruth string
}

// Dataset maps category -> question text -> ground-truth answer.
type Dataset map[Category]map[string]string

func (d Dataset) Len() int {
	total := 0
	for _, questions := range d {
		total += len(questions)
	}
	return total
}

// Questions flattens the dataset into a stable, sorted order.
func (d Dataset) Questions() []Question {
	questions := make([]Question, 0, d.Len())
	for category, entries := range d {
		for text, truth := range entries {
			questions = append(questions, Question{
				Key:         QuestionKey{Category: category, Text: text},
				GroundTruth: truth,
			})
		}
	}

	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Key.Category == questions[j].Key.Category {
			return questions[i].Key.Text < questions[j].Key.Text
		}
		return questions[i].Key.Category < questions[j].Key.Category
	})

	return questions
}

func (d Dataset) Validate() error {
	if len(d) == 0 {
		return ErrEmptyDataset
	}
	for category, entries := range d {
		if strings.TrimSpace(string(category)) == "" {
			return fmt.Errorf("category name is required")
		}
		for text := range entries {
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("category %q: question text is required", category)
			}
		}
	}
	return nil
}
