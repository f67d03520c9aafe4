package recipe

import (
	"encoding/json"
	"fmt"

	"github.com/lsoc/neco/pkg/log"
)

// rawInstruction mirrors Instruction's on-disk fields; used only to probe
// the "type" discriminator before full decode.
type rawInstruction struct {
	Type InstructionType `json:"type"`
}

// DecodeInstructions parses a recipe.json array. Elements with a recognized
// type decode into Instruction; elements with an unrecognized type are
// logged and skipped, per the tagged-union-with-fallback decode the format
// calls for.
func DecodeInstructions(data []byte) ([]Instruction, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}

	logger := log.WithComponent("recipe")
	out := make([]Instruction, 0, len(raws))

	for i, raw := range raws {
		var probe rawInstruction
		if err := json.Unmarshal(raw, &probe); err != nil {
			logger.Warn().Err(err).Int("index", i).Msg("skipping unparseable recipe instruction")
			continue
		}

		switch probe.Type {
		case InstructionCopy, InstructionCopyDir, InstructionRunCommand, InstructionRunScript:
			var inst Instruction
			if err := json.Unmarshal(raw, &inst); err != nil {
				logger.Warn().Err(err).Int("index", i).Str("type", string(probe.Type)).Msg("skipping unparseable recipe instruction")
				continue
			}
			out = append(out, inst)
		default:
			logger.Warn().Int("index", i).Str("type", string(probe.Type)).Msg("skipping recipe instruction of unknown type")
		}
	}

	return out, nil
}
