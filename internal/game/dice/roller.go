package dice

import "go.uber.org/zap"

// Roll evaluates an Expression using the given Source.
//
// Precondition: expr must come from Parse or Critical; src must be non-nil.
// Postcondition: len(result.Dice) == expr.Count, each die in [1, expr.Sides],
// result.Total() == sum(result.Dice) + result.Modifier.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	return RollResult{
		Expression: expr.Canonical(),
		Dice:       rolled,
		Modifier:   expr.Modifier,
	}
}

// Roller combines a Source with a logger so every roll leaves a debug
// audit line with expression, die values, modifier, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller that rolls with src and logs each roll.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll evaluates expr and logs the result at debug level.
//
// Precondition: expr must come from Parse or Critical.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// Evaluate parses expr and rolls it in a single call.
//
// Postcondition: Returns a RollResult or a parse error; never partially
// mutates caller state on failure.
func (r *Roller) Evaluate(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}

// Source exposes the underlying randomness provider for callers that
// need raw draws (e.g. single d20 attack rolls in the enemy phase).
func (r *Roller) Source() Source {
	return r.src
}
