// admit submits one admission enquiry to a running relay from the command
// line, applying the same required-field checks as the enquiry form.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"admission-relay/pkg/admission"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var relayURL string
	var timeout time.Duration
	var fields admission.Submission

	flagSet := pflag.NewFlagSet("admit", pflag.ContinueOnError)
	flagSet.StringVar(&relayURL, "relay", "http://localhost:8080"+admission.DefaultPath, "relay submit endpoint")
	flagSet.DurationVar(&timeout, "timeout", 60*time.Second, "time to wait for the relay")
	flagSet.StringVarP(&fields.FullName, "name", "n", "", "student full name (required)")
	flagSet.StringVarP(&fields.Class, "class", "c", "", "class: 8th, 9th, 10th, 11th, 12th or college (required)")
	flagSet.StringVarP(&fields.Board, "board", "b", "", "board: cbse, ssc or college")
	flagSet.StringVarP(&fields.ContactNumber, "contact", "p", "", "contact number (required)")
	flagSet.StringVarP(&fields.Email, "email", "e", "", "email address")
	flagSet.StringVarP(&fields.Address, "address", "a", "", "postal address")
	flagSet.StringVarP(&fields.Subjects, "subjects", "s", "", "subjects of interest")
	flagSet.StringVar(&fields.GoogleSheetURL, "sheet-url", os.Getenv("SHEET_WEBHOOK_URL"), "Google Sheet webhook URL (default $SHEET_WEBHOOK_URL)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	form := admission.NewForm(admission.NewClient(relayURL, nil))
	form.Fill(fields)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	message, err := form.Submit(ctx)
	if err != nil {
		var verr *admission.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%s (missing --%s)", verr.Message, flagFor(verr.Field))
		}
		return err
	}

	fmt.Println(message)
	return nil
}

func flagFor(field string) string {
	switch field {
	case "fullName":
		return "name"
	case "contactNumber":
		return "contact"
	case "googleSheetUrl":
		return "sheet-url"
	}
	return field
}
