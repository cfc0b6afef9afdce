package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/decision"
	"github.com/gkobilansky/ab-advisor/internal/input"
)

func newDecideCmd(a *app) *cobra.Command {
	var (
		variants    []string
		file        string
		metric      string
		asJSON      bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Decide on variant counts without storing them",
		Long: `Run the significance test on traffic and success counts.

The first variant is the control. Counts come from repeated --variant
flags, a JSON or YAML file, or interactive prompts.

Examples:
  ab-advisor decide --variant A:100000:5000 --variant B:100000:5500
  ab-advisor decide --metric conversion --file experiment.yaml --json
  ab-advisor decide --interactive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(cmd, variants, file, metric, interactive)
			if err != nil {
				return err
			}

			in, err := req.ToInput()
			if err != nil {
				return err
			}

			res, err := decision.Decide(in)
			if err != nil {
				return err
			}

			a.logger.Debug("decision computed", "test", res.Test, "p_value", res.PValue)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&variants, "variant", nil, "variant as name:traffic:successes (repeatable, first is control)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read input from a .json or .yaml file")
	cmd.Flags().StringVarP(&metric, "metric", "m", string(decision.MetricCTR), "metric: ctr or conversion")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for variants")
	cmd.MarkFlagsMutuallyExclusive("variant", "file", "interactive")

	return cmd
}

// buildRequest collects a request from whichever input source was chosen.
func buildRequest(cmd *cobra.Command, variants []string, file, metric string, interactive bool) (input.Request, error) {
	switch {
	case file != "":
		req, err := input.ReadFile(file)
		if err != nil {
			return input.Request{}, err
		}
		if cmd.Flags().Changed("metric") || req.Metric == "" {
			req.Metric = metric
		}
		return req, nil

	case interactive:
		return promptRequest(cmd.InOrStdin(), cmd.OutOrStdout(), metric)

	case len(variants) > 0:
		req := input.Request{Metric: metric}
		for _, s := range variants {
			v, err := input.ParseVariant(s)
			if err != nil {
				return input.Request{}, err
			}
			req.Variants = append(req.Variants, v)
		}
		return req, nil
	}

	return input.Request{}, errors.New("no input: use --variant, --file or --interactive")
}

// promptRequest asks for between MinVariants and MaxVariants variants.
func promptRequest(in io.Reader, out io.Writer, metric string) (input.Request, error) {
	stdin := io.NopCloser(in)
	stdout := nopWriteCloser{out}

	metrics := []string{string(decision.MetricCTR), string(decision.MetricConversion)}
	sel := promptui.Select{
		Label:  "Metric",
		Items:  metrics,
		Stdin:  stdin,
		Stdout: stdout,
	}
	if metric == string(decision.MetricConversion) {
		sel.CursorPos = 1
	}
	_, metric, err := sel.Run()
	if err != nil {
		return input.Request{}, promptErr(err)
	}

	req := input.Request{Metric: metric}
	for i := 0; i < input.MaxVariants; i++ {
		label := string(rune('A' + i))
		if i >= input.MinVariants {
			more := promptui.Prompt{
				Label:     "Add another variant",
				IsConfirm: true,
				Stdin:     stdin,
				Stdout:    stdout,
			}
			if _, err := more.Run(); err != nil {
				if errors.Is(err, promptui.ErrAbort) {
					break
				}
				return input.Request{}, promptErr(err)
			}
		}

		name, err := ask(stdin, stdout, fmt.Sprintf("Variant %d name", i+1), label, nonEmpty)
		if err != nil {
			return input.Request{}, err
		}
		traffic, err := askCount(stdin, stdout, name+" traffic")
		if err != nil {
			return input.Request{}, err
		}
		successes, err := askCount(stdin, stdout, name+" successes")
		if err != nil {
			return input.Request{}, err
		}

		req.Variants = append(req.Variants, input.VariantRequest{Name: name, Traffic: traffic, Successes: successes})
	}

	return req, nil
}

func ask(stdin io.ReadCloser, stdout io.WriteCloser, label, def string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validate,
		Stdin:    stdin,
		Stdout:   stdout,
	}
	v, err := p.Run()
	if err != nil {
		return "", promptErr(err)
	}
	return strings.TrimSpace(v), nil
}

func askCount(stdin io.ReadCloser, stdout io.WriteCloser, label string) (int, error) {
	v, err := ask(stdin, stdout, label, "0", validCount)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name is required")
	}
	return nil
}

func validCount(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a whole number")
	}
	if n < 0 || n > input.MaxCount {
		return fmt.Errorf("must be between 0 and %d", input.MaxCount)
	}
	return nil
}

func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return errors.New("cancelled")
	}
	return fmt.Errorf("prompt failed: %w", err)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
