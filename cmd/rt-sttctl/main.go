// Command rt-sttctl is a command-line client for the rt-stt daemon's
// control socket: it streams the broadcast event feed by default, or runs a
// single control command when given a subcommand.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rt-stt/rt-stt/internal/broadcast"
	"github.com/rt-stt/rt-stt/internal/config"
	"github.com/rt-stt/rt-stt/internal/control"
)

const defaultSocketPath = "/tmp/rt-stt.sock"

const callTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("rt-sttctl", flag.ContinueOnError)
	socketPath := fs.String("socket", defaultSocketPath, "path to the daemon's control socket")
	asJSON := fs.Bool("json", false, "print raw JSON instead of a formatted summary")
	withTimestamp := fs.Bool("timestamp", false, "prefix each streamed event with a timestamp")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	sub := "stream"
	rest := fs.Args()
	if len(rest) > 0 {
		sub = rest[0]
		rest = rest[1:]
	}

	client, err := control.Dial(*socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rt-sttctl: %v\n", err)
		return 1
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch sub {
	case "stream":
		return streamEvents(ctx, client, *asJSON, *withTimestamp)
	case "status":
		return callAndPrint(ctx, client, control.CommandGetStatus, nil, *asJSON)
	case "pause":
		return callAndPrint(ctx, client, control.CommandPause, nil, *asJSON)
	case "resume":
		return callAndPrint(ctx, client, control.CommandResume, nil, *asJSON)
	case "get-config":
		return callAndPrint(ctx, client, control.CommandGetConfig, nil, *asJSON)
	case "get-metrics":
		return callAndPrint(ctx, client, control.CommandGetMetrics, nil, *asJSON)
	case "set-language":
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "usage: rt-sttctl set-language <language>")
			return 2
		}
		return callAndPrint(ctx, client, control.CommandSetLanguage,
			control.SetLanguageRequest{Language: rest[0]}, *asJSON)
	case "set-model":
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "usage: rt-sttctl set-model <path>")
			return 2
		}
		return callAndPrint(ctx, client, control.CommandSetModel,
			control.SetModelRequest{ModelPath: rest[0]}, *asJSON)
	case "set-vad-sensitivity":
		req, err := parseVADSensitivity(rest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rt-sttctl: %v\n", err)
			return 2
		}
		return callAndPrint(ctx, client, control.CommandSetVADSensitivity, req, *asJSON)
	default:
		fmt.Fprintf(os.Stderr, "rt-sttctl: unknown subcommand %q\n", sub)
		return 2
	}
}

// streamEvents prints broadcast events as they arrive until ctx is
// cancelled or the connection closes.
func streamEvents(ctx context.Context, client *control.Client, asJSON, withTimestamp bool) int {
	for {
		select {
		case <-ctx.Done():
			return 0
		case event, ok := <-client.Events():
			if !ok {
				return 0
			}
			printEvent(event, asJSON, withTimestamp)
		}
	}
}

func printEvent(event broadcast.Event, asJSON, withTimestamp bool) {
	if asJSON {
		data, err := json.Marshal(event)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rt-sttctl: marshal event: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	prefix := ""
	if withTimestamp {
		prefix = time.Now().Format(time.RFC3339) + " "
	}

	switch event.Type {
	case broadcast.EventTranscription:
		if event.Transcription != nil {
			fmt.Printf("%s[transcription] %s\n", prefix, event.Transcription.Text)
		}
	case broadcast.EventStatus:
		if event.Status != nil {
			fmt.Printf("%s[status] paused=%v %s\n", prefix, event.Status.Paused, event.Status.Reason)
		}
	case broadcast.EventError:
		if event.Error != nil {
			fmt.Printf("%s[error] %s\n", prefix, event.Error.Message)
		}
	case broadcast.EventAck:
		if event.Ack != nil {
			fmt.Printf("%s[ack] %s\n", prefix, event.Ack.CommandID)
		}
	default:
		fmt.Printf("%s[%s]\n", prefix, event.Type)
	}
}

// callAndPrint issues a single command and prints the response.
func callAndPrint(ctx context.Context, client *control.Client, cmdType string, payload any, asJSON bool) int {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := client.Call(ctx, cmdType, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rt-sttctl: %v\n", err)
		return 1
	}

	if asJSON || len(resp.Data) == 0 {
		if len(resp.Data) > 0 {
			fmt.Println(string(resp.Data))
		}
		return 0
	}

	switch cmdType {
	case control.CommandGetStatus:
		var status control.StatusResponse
		if err := json.Unmarshal(resp.Data, &status); err != nil {
			return printRaw(resp.Data)
		}
		fmt.Printf("paused:      %v\n", status.Paused)
		fmt.Printf("language:    %s\n", status.Language)
		fmt.Printf("model_path:  %s\n", status.ModelPath)
		fmt.Printf("subscribers: %d\n", status.Subscribers)
	case control.CommandGetConfig:
		var snap config.Snapshot
		if err := json.Unmarshal(resp.Data, &snap); err != nil {
			return printRaw(resp.Data)
		}
		fmt.Printf("model.path:       %s\n", snap.Model.Path)
		fmt.Printf("language:         %s\n", snap.Language)
		fmt.Printf("vad.energy_threshold: %g\n", snap.VAD.EnergyThreshold)
		fmt.Printf("audio.sample_rate: %d\n", snap.Audio.SampleRate)
		fmt.Printf("socket_path:      %s\n", snap.SocketPath)
	default:
		return printRaw(resp.Data)
	}
	return 0
}

func printRaw(data []byte) int {
	fmt.Println(string(data))
	return 0
}

func parseVADSensitivity(args []string) (control.SetVADSensitivityRequest, error) {
	var req control.SetVADSensitivityRequest
	fs := flag.NewFlagSet("set-vad-sensitivity", flag.ContinueOnError)
	start := fs.Float64("start", 0, "speech start threshold (multiple of noise floor)")
	end := fs.Float64("end", 0, "speech end threshold (multiple of noise floor)")
	if err := fs.Parse(args); err != nil {
		return req, err
	}
	if *start == 0 && *end == 0 {
		return req, errors.New("usage: rt-sttctl set-vad-sensitivity [-start N] [-end N]")
	}
	req.SpeechStartThreshold = *start
	req.SpeechEndThreshold = *end
	return req, nil
}
