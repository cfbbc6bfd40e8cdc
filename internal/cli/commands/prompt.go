package commands

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Prompter asks the user for input. Tests replace the survey-backed
// implementation through the prompter variable.
type Prompter interface {
	Input(message, def string) (string, error)
	Password(message string) (string, error)
	Confirm(message string, def bool) (bool, error)
	Select(message string, options []string) (int, error)
}

var prompter Prompter = surveyPrompter{}

type surveyPrompter struct{}

func (surveyPrompter) Input(message, def string) (string, error) {
	var answer string
	prompt := &survey.Input{Message: message, Default: def}
	err := survey.AskOne(prompt, &answer, survey.WithValidator(survey.Required))
	return answer, promptError(err)
}

func (surveyPrompter) Password(message string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Password{Message: message}, &answer)
	return answer, promptError(err)
}

func (surveyPrompter) Confirm(message string, def bool) (bool, error) {
	answer := def
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &answer)
	return answer, promptError(err)
}

func (surveyPrompter) Select(message string, options []string) (int, error) {
	var idx int
	prompt := &survey.Select{
		Message:  message,
		Options:  options,
		PageSize: 15,
	}
	err := survey.AskOne(prompt, &idx)
	return idx, promptError(err)
}

// promptError maps Ctrl+C to errAborted.
func promptError(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}
