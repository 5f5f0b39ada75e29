package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/fpang/nano-studio/internal/presets"
)

// customChoice is offered alongside the preset groups.
const customChoice = "Write my own instruction"

// ErrDone is returned when the user declines another edit.
var ErrDone = errors.New("no more edits")

// PromptForEdit asks for the next edit: a preset picked from the catalog or
// a free-form instruction. It returns ErrDone when the user finishes.
func PromptForEdit(catalog *presets.Catalog) (string, error) {
	items := append(groupItems(catalog), customChoice, "Done")
	groupPrompt := promptui.Select{
		Label: "Next edit",
		Items: items,
		Size:  len(items),
	}
	idx, choice, err := groupPrompt.Run()
	if err != nil {
		return "", fmt.Errorf("edit selection: %w", err)
	}

	switch {
	case choice == "Done":
		return "", ErrDone
	case choice == customChoice:
		return PromptForInstruction()
	}

	group := catalog.Groups[idx]
	presetPrompt := promptui.Select{
		Label: group.Label,
		Items: presetItems(group),
		Size:  10,
		Searcher: func(input string, index int) bool {
			p := group.Presets[index]
			return strings.Contains(strings.ToLower(p.Label), strings.ToLower(input))
		},
	}
	pi, _, err := presetPrompt.Run()
	if err != nil {
		return "", fmt.Errorf("preset selection: %w", err)
	}
	return group.Presets[pi].Instruction, nil
}

// PromptForInstruction reads a free-form, non-blank instruction.
func PromptForInstruction() (string, error) {
	prompt := promptui.Prompt{
		Label: "Instruction",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("instruction cannot be empty")
			}
			return nil
		},
	}
	text, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("instruction: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func groupItems(catalog *presets.Catalog) []string {
	items := make([]string, 0, len(catalog.Groups))
	for _, g := range catalog.Groups {
		items = append(items, fmt.Sprintf("%s (%d)", g.Label, len(g.Presets)))
	}
	return items
}

func presetItems(g presets.Group) []string {
	items := make([]string, 0, len(g.Presets))
	for _, p := range g.Presets {
		label := p.Label
		if p.Icon != "" {
			label = p.Icon + " " + label
		}
		items = append(items, label)
	}
	return items
}
