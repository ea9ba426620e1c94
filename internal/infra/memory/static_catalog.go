package memory

import (
	"context"

	"couplegame-service/internal/domain"
)

// StaticQuestionBank is a loader backed by an in-memory catalog (useful for tests/demos).
type StaticQuestionBank struct {
	catalog map[domain.GameType][]domain.BankQuestion
}

func NewStaticQuestionBank(catalog map[domain.GameType][]domain.BankQuestion) *StaticQuestionBank {
	return &StaticQuestionBank{catalog: catalog}
}

func (l *StaticQuestionBank) LoadQuestions(_ context.Context, gameType domain.GameType) ([]domain.BankQuestion, error) {
	if !gameType.Valid() {
		return nil, domain.ErrUnknownGameType
	}
	questions, ok := l.catalog[gameType]
	if !ok || len(questions) == 0 {
		return nil, domain.ErrEmptyQuestionBank
	}
	return copyQuestions(questions), nil
}

// DefaultCatalog is the built-in question set used when no database catalog is configured.
func DefaultCatalog() map[domain.GameType][]domain.BankQuestion {
	return map[domain.GameType][]domain.BankQuestion{
		domain.GameKnowMe: {
			{Prompt: "What is my favourite comfort food?", Points: 1},
			{Prompt: "Where would I go on a dream holiday?", Points: 1},
			{Prompt: "What was my first concert?", Points: 2},
			{Prompt: "What is my biggest pet peeve?", Points: 1},
			{Prompt: "What did I want to be as a child?", Points: 2},
		},
		domain.GameLoveLanguages: {
			{Prompt: "What small gesture makes me feel most loved?", Points: 1},
			{Prompt: "How do I prefer to be comforted after a bad day?", Points: 1},
			{Prompt: "Which gift from you meant the most to me?", Points: 2},
			{Prompt: "How would I spend a perfect evening together?", Points: 1},
		},
		domain.GameWouldYouRather: {
			{Prompt: "Would you rather travel to the past or the future?", Points: 1, OptionA: "Past", OptionB: "Future"},
			{Prompt: "Would you rather live by the sea or in the mountains?", Points: 1, OptionA: "Sea", OptionB: "Mountains"},
			{Prompt: "Would you rather have breakfast in bed or dinner out?", Points: 1, OptionA: "Breakfast in bed", OptionB: "Dinner out"},
		},
		domain.GameThisOrThat: {
			{Prompt: "Coffee or tea?", Points: 1, OptionA: "Coffee", OptionB: "Tea"},
			{Prompt: "Sunrise or sunset?", Points: 1, OptionA: "Sunrise", OptionB: "Sunset"},
			{Prompt: "Movie night or game night?", Points: 1, OptionA: "Movie night", OptionB: "Game night"},
			{Prompt: "Cats or dogs?", Points: 1, OptionA: "Cats", OptionB: "Dogs"},
		},
		domain.GameDeepTalk: {
			{Prompt: "What is a memory of us you return to often?", Points: 1},
			{Prompt: "What is something you have never told me?", Points: 1},
			{Prompt: "Where do you see us in five years?", Points: 1},
		},
	}
}
