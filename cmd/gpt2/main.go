// Command gpt2 inspects, evaluates and samples from GPT-2 models.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "version":
		fmt.Printf("gpt2 %s\n", version)
		return
	case "info":
		err = runInfo(args)
	case "eval":
		err = runEval(ctx, args)
	case "generate":
		err = runGenerate(ctx, args)
	case "import":
		err = runImport(args)
	case "export":
		err = runExport(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error(cmd+" failed", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("gpt2 - GPT-2 in Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  info       Show model presets and parameter counts")
	fmt.Println("  eval       Report loss over batches of a text file")
	fmt.Println("  generate   Sample continuations of a prompt")
	fmt.Println("  import     Load a HuggingFace safetensors checkpoint and check it")
	fmt.Println("  export     Write model weights in a HuggingFace layout")
	fmt.Println()
	fmt.Println("Run 'gpt2 <command> -h' for command flags.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  gpt2 generate -weights gpt2/model.safetensors -prompt \"Hello, I'm a language model,\"")
	fmt.Println("  gpt2 eval -data input.txt -batch 4 -seq 32 -steps 50")
}

// setupLogger installs a text slog handler on stderr.
func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
