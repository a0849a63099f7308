// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wrapperai/wrapper-ai/internal/app"
	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

type cli struct {
	configDir string
	runtime   string
	out       io.Writer
	newState  func(ctx context.Context, config *cloud.Config) (*app.StateManager, error)
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "wrapperctl",
		Short:         "Repurpose videos and query documents with WrapperAI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configDir, "config-dir", "configs", "Directory holding the .env*.toml files")
	root.PersistentFlags().StringVar(&c.runtime, "runtime", "local", "Runtime configuration to load on top of the base file")

	root.AddCommand(c.repurposeCommand())
	root.AddCommand(c.ingestCommand())
	root.AddCommand(c.chatCommand())
	root.AddCommand(c.toolCommand())
	root.AddCommand(c.healthCommand())
	root.AddCommand(c.statsCommand())
	return root
}

// open loads the configuration and builds the services with the indexing
// queue running. The caller closes the state.
func (c *cli) open(ctx context.Context) (*app.StateManager, error) {
	if err := os.Setenv(cloud.EnvConfigFilePrefix, c.configDir); err != nil {
		return nil, err
	}
	if err := os.Setenv(cloud.EnvConfigRuntime, c.runtime); err != nil {
		return nil, err
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	cloud.ApplyEnvironment(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	state, err := c.newState(ctx, config)
	if err != nil {
		return nil, err
	}
	state.Queue.Start()
	return state, nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (c *cli) repurposeCommand() *cobra.Command {
	var (
		text     string
		textFile string
		markdown bool
	)
	cmd := &cobra.Command{
		Use:   "repurpose [youtube-url]",
		Short: "Turn a video, or a transcript, into a blog post, a thread and a LinkedIn post",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &model.RepurposeRequest{Text: text}
			if len(args) == 1 {
				req.URL = args[0]
			}
			if textFile != "" {
				data, err := os.ReadFile(textFile)
				if err != nil {
					return err
				}
				req.Text = string(data)
			}
			state, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer state.Close()

			content, err := state.Repurpose.Repurpose(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !markdown {
				return c.printJSON(content)
			}
			out, err := RenderMarkdown(content)
			if err != nil {
				return err
			}
			_, err = io.WriteString(c.out, out)
			return err
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "Transcript to use instead of fetching one")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Read the transcript from a file")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print Markdown instead of JSON")
	return cmd
}

func (c *cli) ingestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Index PDF or image files for chat",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer state.Close()

			for _, name := range args {
				data, err := os.ReadFile(name)
				if err != nil {
					return err
				}
				result, err := state.Ingest.Ingest(cmd.Context(), filepath.Base(name), data)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				fmt.Fprintf(c.out, "%s: %d segments indexed (%d failed)\n", name, result.Saved, result.Failed)
			}
			return nil
		},
	}
}

func (c *cli) chatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask a question about the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer state.Close()

			answer, err := state.Rag.Chat(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, answer.Answer)
			if len(answer.Sources) > 0 {
				fmt.Fprintf(c.out, "\nSources: %s\n", strings.Join(answer.Sources, ", "))
			}
			return nil
		},
	}
}

func (c *cli) toolCommand() *cobra.Command {
	tool := &cobra.Command{
		Use:   "tool",
		Short: "Generate and run no-code tools",
	}
	tool.AddCommand(&cobra.Command{
		Use:   "generate <description>",
		Short: "Generate a tool definition from a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer state.Close()

			config, err := state.Tools.Generate(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return c.printJSON(config)
		},
	})

	var (
		promptTemplate string
		inputs         map[string]string
		useDocuments   bool
	)
	run := &cobra.Command{
		Use:   "run",
		Short: "Run a prompt template with inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer state.Close()

			values := make(map[string]any, len(inputs))
			for k, v := range inputs {
				values[k] = v
			}
			result, err := state.Tools.Run(cmd.Context(), &model.ToolRunRequest{
				PromptTemplate: promptTemplate,
				Inputs:         values,
				UseDocuments:   useDocuments,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, result.Result)
			if len(result.Sources) > 0 {
				fmt.Fprintf(c.out, "\nSources: %s\n", strings.Join(result.Sources, ", "))
			}
			return nil
		},
	}
	run.Flags().StringVar(&promptTemplate, "template", "", "Prompt template using {{key}} placeholders")
	run.Flags().StringToStringVar(&inputs, "input", nil, "Input value as key=value, repeatable")
	run.Flags().BoolVar(&useDocuments, "documents", false, "Add matching document chunks to the prompt")
	tool.AddCommand(run)
	return tool
}

func (c *cli) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the generation providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer state.Close()

			report, _ := state.Health.Check(cmd.Context())
			if err := c.printJSON(report); err != nil {
				return err
			}
			if report.Status != "operational" {
				return fmt.Errorf("no generation provider is available")
			}
			return nil
		},
	}
}

func (c *cli) statsCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the usage ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer state.Close()

			stats, err := state.Usage.Stats(cmd.Context(), days)
			if err != nil {
				return err
			}
			return c.printJSON(stats)
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to summarize")
	return cmd
}
