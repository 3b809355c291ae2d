package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/binatone-bina/health-chat-nexus/pkg/session"
	"github.com/binatone-bina/health-chat-nexus/pkg/widget"
)

func runOptions(args []string) {
	fs := pflag.NewFlagSet("options", pflag.ContinueOnError)
	appointmentID := fs.String("appointment", "", "Appointment ID")
	role := fs.String("role", string(session.RolePatient), "Participant role (doctor, patient)")
	room := fs.String("room", "", "Room name configured by the backend, if any")
	domain := fs.String("domain", widget.DefaultDomain, "Domain of the hosted video service")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s options [options]\n\nPrints the widget.instantiate payload for an appointment.\n\nOptions:\n", os.Args[0])
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if *appointmentID == "" {
		fmt.Fprintln(os.Stderr, "An appointment ID is required. Use --appointment")
		os.Exit(2)
	}

	if err := writeOptions(os.Stdout, *domain, *room, *appointmentID, session.ParseRole(*role)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildInstantiatePayload(domain, room, appointmentID string, role session.Role) widget.InstantiatePayload {
	opts := widget.NewOptions(widget.RoomName(room, appointmentID), role.DisplayName(), role.IsModerator())
	return widget.InstantiatePayload{Domain: domain, Options: opts}
}

func writeOptions(w io.Writer, domain, room, appointmentID string, role session.Role) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildInstantiatePayload(domain, room, appointmentID, role))
}
