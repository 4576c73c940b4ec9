package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	apicall "github.com/JohnPlummer/jp-go-apicall"
)

func policyCommand() *cli.Command {
	return &cli.Command{
		Name:  "policy",
		Usage: "print the resolved base URL and retry policy",
		Action: func(cliCtx *cli.Context) error {
			rt, err := newRuntime(cliCtx, apicall.NopIndicator{})
			if err != nil {
				return err
			}
			policy := rt.client.Policy()
			return writeJSON(cliCtx.App.Writer, policyOutput{
				BaseURL:        rt.client.BaseURL(),
				Live:           rt.cfg.Backend.IsLive,
				MaxAttempts:    policy.MaxAttempts,
				Delay:          policy.Delay.String(),
				AttemptTimeout: policy.AttemptTimeout.String(),
				TimeoutEnabled: policy.TimeoutEnabled,
				Breaker:        rt.cfg.Breaker.Enabled,
			})
		},
	}
}

func callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "perform one logical call and print the result",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagMethod, Aliases: []string{"X"}, Value: http.MethodGet, Usage: "HTTP method"},
			&cli.StringSliceFlag{Name: flagHeader, Aliases: []string{"H"}, Usage: "request header Name=value (repeatable)"},
			&cli.StringFlag{Name: flagData, Aliases: []string{"d"}, Usage: "request body, @file reads it from a file"},
			&cli.StringFlag{Name: flagLabel, Value: apicall.DefaultBusyLabel, Usage: "busy indicator label"},
			&cli.BoolFlag{Name: flagEnvelope, Usage: "decode the body as a {success, response, errorMessage} envelope"},
		},
		Action: runCall,
	}
}

type policyOutput struct {
	BaseURL        string `json:"baseUrl"`
	Delay          string `json:"delay"`
	AttemptTimeout string `json:"attemptTimeout"`
	MaxAttempts    int    `json:"maxAttempts"`
	Live           bool   `json:"live"`
	TimeoutEnabled bool   `json:"timeoutEnabled"`
	Breaker        bool   `json:"breaker"`
}

type callOutput struct {
	Data     map[string]any `json:"data"`
	Duration string         `json:"duration"`
	Status   int            `json:"status"`
	Attempts int            `json:"attempts"`
}

func runCall(cliCtx *cli.Context) error {
	if cliCtx.NArg() != 1 {
		return cli.Exit("call expects exactly one PATH argument", 2)
	}

	rt, err := newRuntime(cliCtx, newSpinnerIndicator(cliCtx.App.ErrWriter))
	if err != nil {
		return err
	}

	spec, err := requestSpecFromFlags(cliCtx, cliCtx.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	start := time.Now()
	var res *apicall.CallResult
	err = rt.busy.Run(cliCtx.String(flagLabel), func() error {
		var callErr error
		res, callErr = rt.client.Execute(cliCtx.Context, spec)
		return callErr
	})
	if err != nil {
		if apicall.IsTimeout(err) || apicall.IsNetwork(err) {
			return cli.Exit(err.Error(), 1)
		}
		return err
	}

	if cliCtx.Bool(flagEnvelope) {
		return writeJSON(cliCtx.App.Writer, apicall.DecodeEnvelope[any](res))
	}
	return writeJSON(cliCtx.App.Writer, callOutput{
		Data:     res.Data,
		Duration: time.Since(start).Round(time.Millisecond).String(),
		Status:   res.Status,
		Attempts: res.Attempts,
	})
}

func requestSpecFromFlags(cliCtx *cli.Context, path string) (apicall.RequestSpec, error) {
	header, err := parseHeaders(cliCtx.StringSlice(flagHeader))
	if err != nil {
		return apicall.RequestSpec{}, err
	}

	spec := apicall.RequestSpec{
		Path:   path,
		Method: cliCtx.String(flagMethod),
		Header: header,
	}

	data := cliCtx.String(flagData)
	switch {
	case data == "":
	case data[0] == '@':
		body, err := os.ReadFile(data[1:])
		if err != nil {
			return apicall.RequestSpec{}, fmt.Errorf("reading body: %w", err)
		}
		spec.Body = body
	default:
		spec.Body = []byte(data)
	}
	return spec, nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
