package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/geo-analyzer/internal/analyzeclient"
	"github.com/joeblew999/geo-analyzer/internal/mapview"
	"github.com/joeblew999/geo-analyzer/internal/report"
	"github.com/joeblew999/geo-analyzer/internal/server"
	"github.com/joeblew999/geo-analyzer/internal/session"
	"github.com/joeblew999/geo-analyzer/internal/upload"
)

// Options defines all CLI flags and env vars for the analyzer.
// Flags: --host, --port, --data-dir, --service-url, --endpoint, --timeout, --width, --height
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_SERVICE_URL, ...
type Options struct {
	Host       string `doc:"Host to bind to" default:"0.0.0.0"`
	Port       int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir    string `doc:"Directory for the analysis history database (empty keeps it in memory)" default:".data"`
	ServiceURL string `doc:"Base URL of the analysis service" default:"http://localhost:8000"`
	Endpoint   string `doc:"Service endpoint files are submitted to (/analyze or /upload)" default:"/analyze"`
	Timeout    int    `doc:"Submission timeout in seconds (0 disables it)" default:"120"`
	Width      int    `doc:"Map canvas width in pixels, used to fit the viewport" default:"1024"`
	Height     int    `doc:"Map canvas height in pixels, used to fit the viewport" default:"768"`
}

func (o *Options) timeout() time.Duration {
	return time.Duration(o.Timeout) * time.Second
}

func newServer(opts *Options) *server.Server {
	srv, err := server.New(server.Config{
		Host:       opts.Host,
		Port:       fmt.Sprintf("%d", opts.Port),
		DataDir:    opts.DataDir,
		ServiceURL: opts.ServiceURL,
		Endpoint:   opts.Endpoint,
		Timeout:    opts.timeout(),
		Width:      opts.Width,
		Height:     opts.Height,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	return srv
}

// analyzeResult is what the analyze subcommand prints.
type analyzeResult struct {
	Status   string                `json:"status" yaml:"status"`
	Message  string                `json:"message,omitempty" yaml:"message,omitempty"`
	Report   report.AnalysisReport `json:"report" yaml:"report"`
	Features int                   `json:"features" yaml:"features"`
	Bounds   []float64             `json:"bounds,omitempty" yaml:"bounds,omitempty,flow"`
	Center   []float64             `json:"center" yaml:"center,flow"`
	Zoom     int                   `json:"zoom" yaml:"zoom"`
}

func runAnalyze(ctx context.Context, opts *Options, path string) (analyzeResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return analyzeResult{}, err
	}

	renderer := mapview.NewRenderer(mapview.Options{Width: opts.Width, Height: opts.Height})
	defer renderer.Close()

	client := analyzeclient.New(opts.ServiceURL, opts.Endpoint, &http.Client{})
	sess, err := session.New(session.Config{
		Submitter:  client,
		Reanalyzer: client,
		Renderer:   renderer,
		Timeout:    opts.timeout(),
	})
	if err != nil {
		return analyzeResult{}, err
	}

	st, err := sess.Analyze(ctx, upload.File{Name: filepath.Base(path), Content: content})
	if err != nil {
		return analyzeResult{}, err
	}

	res := analyzeResult{
		Status:  st.Status,
		Message: st.ErrorMessage,
		Report:  st.Report,
		Bounds:  st.Map.Bounds,
		Center:  []float64{st.Map.Viewport.Center.Lat(), st.Map.Viewport.Center.Lon()},
		Zoom:    st.Map.Viewport.Zoom,
	}
	if st.Map.DataLayer != nil {
		res.Features = st.Map.DataLayer.FeatureCount
	}
	return res, nil
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Built on start so subcommands never open the history database twice.
		var srv *server.Server

		hooks.OnStart(func() {
			srv = newServer(opts)
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("geo-analyzer server starting...\n")
			fmt.Printf("  Server:   %s\n", baseURL)
			fmt.Printf("  Service:  %s%s\n", opts.ServiceURL, opts.Endpoint)
			fmt.Printf("  Data:     %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Upload:   POST %s/api/v1/analyze (multipart field \"file\")\n", baseURL)
			fmt.Printf("  Events:   %s/api/v1/viewer/events\n", baseURL)
			fmt.Printf("  Docs:     %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI:  %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
		hooks.OnStop(func() {
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "geo-analyzer"
	cli.Root().Short = "Upload geometry files for anomaly analysis and inspect the results"
	cli.Root().Version = "0.1.0"

	// analyze subcommand: one-shot pipeline without the HTTP server
	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze one geometry file and print the report (YAML by default, --json for JSON)",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			res, err := runAnalyze(cmd.Context(), opts, args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			useJSON, _ := cmd.Flags().GetBool("json")

			var output []byte
			if useJSON {
				output, err = json.MarshalIndent(res, "", "  ")
			} else {
				output, err = yaml.Marshal(res)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling report: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))

			if res.Status == "failure" {
				os.Exit(1)
			}
		}),
	}
	analyzeCmd.Flags().BoolP("json", "j", false, "Output as JSON instead of YAML")
	cli.Root().AddCommand(analyzeCmd)

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()
			spec := srv.API().OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Run()
}
