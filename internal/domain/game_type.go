package domain

// GameType selects the question catalog and the slot variant of a session.
type GameType string

const (
	GameKnowMe         GameType = "know_me"
	GameLoveLanguages  GameType = "love_languages"
	GameWouldYouRather GameType = "would_you_rather"
	GameThisOrThat     GameType = "this_or_that"
	GameDeepTalk       GameType = "deep_talk"
)

var gameTypes = map[GameType]bool{
	GameKnowMe:         true,
	GameLoveLanguages:  true,
	GameWouldYouRather: false,
	GameThisOrThat:     false,
	GameDeepTalk:       false,
}

// GameTypes lists every known game type in a stable order.
func GameTypes() []GameType {
	return []GameType{GameKnowMe, GameLoveLanguages, GameWouldYouRather, GameThisOrThat, GameDeepTalk}
}

// ParseGameType validates raw against the closed set of game types.
func ParseGameType(raw string) (GameType, error) {
	gt := GameType(raw)
	if !gt.Valid() {
		return "", ErrUnknownGameType
	}
	return gt, nil
}

func (g GameType) Valid() bool {
	_, ok := gameTypes[g]
	return ok
}

// NeedsCorrection reports whether guesses in this game are judged by the subject.
func (g GameType) NeedsCorrection() bool {
	return gameTypes[g]
}

// Variant is the slot shape used by sessions of this game type.
func (g GameType) Variant() SlotVariant {
	if g.NeedsCorrection() {
		return VariantCorrection
	}
	return VariantSimple
}
