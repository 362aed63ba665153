package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var apiBaseURL string

	cmd := &cobra.Command{
		Use:           "discoctl",
		Short:         "Utility for managing simulation-model discoveries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&apiBaseURL, "api", "http://localhost:8080", "Base URL of the discovery API")

	cmd.AddCommand(newSubmitCommand(&apiBaseURL))
	cmd.AddCommand(newGetCommand(&apiBaseURL))
	cmd.AddCommand(newListCommand(&apiBaseURL))
	cmd.AddCommand(newDeleteCommand(&apiBaseURL))
	return cmd
}

func newSubmitCommand(apiBaseURL *string) *cobra.Command {
	var (
		configurationPath string
		eventLogPath      string
		callbackURL       string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a discovery from a configuration and an event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return submit(ctx, *apiBaseURL, configurationPath, eventLogPath, callbackURL)
		},
	}

	cmd.Flags().StringVar(&configurationPath, "configuration", "", "Path to the discovery configuration YAML")
	cmd.Flags().StringVar(&eventLogPath, "event-log", "", "Path to the event log (.csv or .csv.gz)")
	cmd.Flags().StringVar(&callbackURL, "callback-url", "", "Optional URL notified when the discovery finishes")
	_ = cmd.MarkFlagRequired("configuration")
	_ = cmd.MarkFlagRequired("event-log")
	return cmd
}

func submit(ctx context.Context, apiBaseURL, configurationPath, eventLogPath, callbackURL string) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := attachFile(mw, "configuration", configurationPath, "application/yaml"); err != nil {
		return err
	}
	if err := attachFile(mw, "event_log", eventLogPath, eventLogContentType(eventLogPath)); err != nil {
		return err
	}
	if callbackURL != "" {
		if err := mw.WriteField("callback_url", callbackURL); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		apiURL(apiBaseURL, "/v1/discoveries/"), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return do(req)
}

func attachFile(mw *multipart.Writer, field, path, contentType string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filepath.Base(path)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

func eventLogContentType(path string) string {
	if strings.HasSuffix(path, ".xes") {
		return "application/xml"
	}
	return "text/csv"
}

func newGetCommand(apiBaseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <discovery-id>",
		Short: "Show one discovery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
				apiURL(*apiBaseURL, "/v1/discoveries/"+args[0]+"/"), nil)
			if err != nil {
				return err
			}
			return do(req)
		},
	}
}

func newListCommand(apiBaseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all discoveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
				apiURL(*apiBaseURL, "/v1/discoveries/"), nil)
			if err != nil {
				return err
			}
			return do(req)
		},
	}
}

func newDeleteCommand(apiBaseURL *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "delete [discovery-id]",
		Short: "Delete one discovery, or all with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/discoveries/"
			switch {
			case all && len(args) == 0:
			case !all && len(args) == 1:
				path += args[0] + "/"
			default:
				return fmt.Errorf("provide exactly one discovery id, or --all")
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodDelete,
				apiURL(*apiBaseURL, path), nil)
			if err != nil {
				return err
			}
			return do(req)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every discovery")
	return cmd
}

func apiURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// do performs the request and pretty-prints the JSON response.
func do(req *http.Request) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, content, "", "  "); err != nil {
		pretty.Write(content)
	}
	fmt.Println(pretty.String())

	if resp.StatusCode >= 400 {
		return fmt.Errorf("api responded %s", resp.Status)
	}
	return nil
}
