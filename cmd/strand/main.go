// Strand CLI - runs compiled story programs on the terminal or serves
// them over websockets.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/strandvm/strand/manifest"
	"github.com/strandvm/strand/pkg/bytecode"
	"github.com/strandvm/strand/server"
	"github.com/strandvm/strand/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	startNode := flag.String("start", "", "Start node (overrides the manifest)")
	disasm := flag.Bool("disasm", false, "Print a disassembly listing instead of running")
	serveMode := flag.Bool("serve", false, "Start the websocket dialogue server")
	configPath := flag.String("config", "", "Server config file (used with --serve)")
	addr := flag.String("addr", "", "Listen address (overrides the server config)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: strand [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Runs compiled story files. Without files, looks for a strand.toml\n")
		fmt.Fprintf(os.Stderr, "manifest in the current directory or above.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  strand story.stbc              # Run a single compiled story\n")
		fmt.Fprintf(os.Stderr, "  strand a.stbc b.stbc -start Hub  # Merge two files, start at Hub\n")
		fmt.Fprintf(os.Stderr, "  strand -disasm story.stbc      # List the program\n")
		fmt.Fprintf(os.Stderr, "  strand --serve --addr :8700    # Serve the manifest's story\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	program, start, overrides, err := loadStory(flag.Args(), *startNode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *disasm {
		fmt.Print(bytecode.Disassemble(program))
		return
	}

	if *serveMode {
		if err := serve(program, start, *configPath, *addr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runInteractive(program, start, overrides); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadStory assembles the program from file arguments, or from a
// discovered strand.toml when no files are given.
func loadStory(files []string, startFlag string) (*bytecode.Program, string, map[string]bytecode.Value, error) {
	start := startFlag
	var overrides map[string]bytecode.Value

	if len(files) == 0 {
		m, err := manifest.FindAndLoad(".")
		if err != nil {
			return nil, "", nil, err
		}
		if m == nil {
			return nil, "", nil, fmt.Errorf("no files given and no strand.toml found")
		}
		files = m.ProgramPaths()
		if start == "" {
			start = m.Story.Start
		}
		overrides, err = m.VariableOverrides()
		if err != nil {
			return nil, "", nil, err
		}
	}
	if start == "" {
		start = "Start"
	}

	b := bytecode.NewBuilder()
	for _, f := range files {
		b.AddFile(f)
	}
	program, err := b.Build()
	if err != nil {
		return nil, "", nil, err
	}
	return program, start, overrides, nil
}

func serve(program *bytecode.Program, start, configPath, addr string) error {
	cfg := server.DefaultConfig()
	if configPath != "" {
		loaded, err := server.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Addr = addr
	}

	s, err := server.New(cfg, program, start, nil)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.ListenAndServe()
}

// runInteractive steps the story on stdin/stdout until it completes.
func runInteractive(program *bytecode.Program, start string, overrides map[string]bytecode.Value) error {
	cp, err := vm.NewCheckpoint(program, start)
	if err != nil {
		return err
	}
	vars := vm.NewMapStore()
	vm.Seed(program, vars)
	for name, value := range overrides {
		vars.Set(name, value)
	}

	runner := vm.NewRunner(nil)
	reader := bufio.NewReader(os.Stdin)
	var resume *vm.ResumeInput

	for {
		next, event, err := runner.Step(program, cp, vars, resume)
		if err != nil {
			return err
		}
		cp, resume = next, nil

		switch e := event.(type) {
		case vm.ShowLine:
			fmt.Println(renderText(program, e.Key, e.Substitutions))

		case vm.RunCommand:
			fmt.Printf("<<%s>>\n", strings.TrimSpace(e.Key+" "+strings.Join(e.Substitutions, " ")))

		case vm.ShowOptions:
			for i, opt := range e.Options {
				marker := fmt.Sprintf("%d)", i+1)
				if !opt.Enabled {
					marker = " -"
				}
				fmt.Printf("  %s %s\n", marker, renderText(program, opt.Key, opt.Substitutions))
			}
			choice, err := readChoice(reader, e.Options)
			if err != nil {
				return err
			}
			resume = &vm.ResumeInput{Selection: choice}

		case vm.DialogueComplete:
			return nil
		}
	}
}

// readChoice prompts until the player picks an enabled option.
func readChoice(reader *bufio.Reader, options []vm.Option) (int, error) {
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > len(options) {
			fmt.Printf("Enter a number between 1 and %d.\n", len(options))
			continue
		}
		if !options[n-1].Enabled {
			fmt.Println("That option is not available.")
			continue
		}
		return n - 1, nil
	}
}

// renderText resolves a content key to display text and fills {n}
// placeholders from the substitutions. Unknown keys fall back to the
// key itself, which keeps partially localized stories runnable.
func renderText(program *bytecode.Program, key string, subs []string) string {
	text := key
	if entry, ok := program.StringEntry(key); ok {
		text = entry.Text
	}
	for i, sub := range subs {
		text = strings.ReplaceAll(text, "{"+strconv.Itoa(i)+"}", sub)
	}
	return text
}
