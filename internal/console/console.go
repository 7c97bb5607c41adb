// Package console provides an interactive shell for driving shades by hand.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/shade"
)

// Controller is what the console needs from the shade controller.
type Controller interface {
	Shades() []*shade.Shade
	Dispatch(address string, cmd shade.Command) (shade.Status, error)
	QueryAll() []shade.Status
	Connected() bool
}

// Console reads commands from a readline prompt.
type Console struct {
	ctrl Controller
	rl   *readline.Instance
}

var shadeVerbs = []string{"move", "open", "close", "stop", "up5", "down5", "query", "travel"}

// New creates a console with a "somfy> " prompt and command completion.
func New(ctrl Controller) (*Console, error) {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("list"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	}
	for _, v := range shadeVerbs {
		items = append(items, readline.PcItem(v, readline.PcItemDynamic(addresses(ctrl))))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "somfy> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    readline.NewPrefixCompleter(items...),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{ctrl: ctrl, rl: rl}, nil
}

func addresses(ctrl Controller) func(string) []string {
	return func(string) []string {
		var out []string
		for _, s := range ctrl.Shades() {
			out = append(out, s.Address().String())
		}
		return out
	}
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop. cancel is called when the user exits.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	stop := context.AfterFunc(ctx, func() { c.rl.Close() })
	defer stop()

	out := c.rl.Stdout()
	printHelp(out)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return
		}

		if Execute(c.ctrl, out, line) {
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line, writing results to out. It returns true when
// the line asks to leave the console.
func Execute(ctrl Controller, out io.Writer, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		printHelp(out)
	case "list", "ls":
		printStatuses(out, ctrl.Connected(), ctrl.QueryAll())
	case "quit", "exit", "q":
		return true
	default:
		runShadeCommand(ctrl, out, cmd, args)
	}
	return false
}

func runShadeCommand(ctrl Controller, out io.Writer, verb string, args []string) {
	if len(args) == 0 {
		if slices.Contains(shadeVerbs, verb) {
			fmt.Fprintf(out, "Usage: %s <addr> (type 'help' for commands)\n", verb)
		} else {
			fmt.Fprintf(out, "Unknown command: %s (type 'help' for commands)\n", verb)
		}
		return
	}
	command, err := shade.ParseCommand(verb, strings.Join(args[1:], " "))
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	st, err := ctrl.Dispatch(args[0], command)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	printStatuses(out, ctrl.Connected(), []shade.Status{st})
}

func printStatuses(out io.Writer, connected bool, statuses []shade.Status) {
	link := "offline"
	if connected {
		link = "online"
	}
	fmt.Fprintf(out, "URTSii %s, %d shade(s)\n", link, len(statuses))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNAME\tPOSITION\tTRAVEL\tSTATE")
	for _, st := range statuses {
		pos := "unknown"
		if st.Known {
			pos = fmt.Sprintf("%.1f%%", st.Position)
		}
		state := "idle"
		if st.Moving {
			state = fmt.Sprintf("%s to %.0f%%", st.Motion, st.Target)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%gs\t%s\n", st.Address, st.Name, pos, st.TravelTime, state)
	}
	tw.Flush()
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `
Somfy URTSii Commands:
  Shades:
    list                 - Show every shade and the URTSii link state
    move <addr> <pct>    - Move to a position (0 = closed, 100 = open)
    open <addr>          - Open fully
    close <addr>         - Close fully
    stop <addr>          - Stop
    up5 <addr>           - Open by 5%
    down5 <addr>         - Close by 5%
    query <addr>         - Show the estimated position
    travel <addr> <sec>  - Set the full-travel time (0 < sec <= 60)

  General:
    help                 - Show this help
    exit                 - Leave the console

  Addresses are PP_CC_NN, e.g. 01_01_03.`)
}
