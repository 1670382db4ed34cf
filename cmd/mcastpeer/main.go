// Command mcastpeer starts a single reliable-multicast peer, or, with
// --demo, an in-process simulation of several peers talking to each
// other over localhost.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/definition"
	"github.com/lucaslopes5988/lamport-mcast/mcast"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

var (
	app = kingpin.New("mcastpeer", "Reliable multicast peer with Lamport-clock ordered delivery.")

	processID = app.Arg("process_id", "this peer's integer identifier").Required().Int()
	host      = app.Flag("host", "address to bind the listener to").Default("localhost").String()
	port      = app.Flag("port", "port to bind the listener to (0 means 8000+process_id)").Default("0").Int()
	processes = app.Flag("processes", `known peer ids, as "1,2,3" or a range "1-4"`).String()
	debug     = app.Flag("debug", "enable debug-level logging").Bool()

	demo          = app.Flag("demo", "run an in-process simulation instead of a single peer").Bool()
	numProcesses  = app.Flag("num-processes", "number of simulated peers in demo mode").Default("3").Int()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if *demo {
		runDemo(*numProcesses)
		return
	}

	if err := runPeer(*processID, *host, *port, *processes, *debug); err != nil {
		fmt.Fprintln(os.Stderr, "mcastpeer:", err)
		os.Exit(1)
	}
}

// parsePeerList parses "a,b,c" or "a-b" into a slice of peer ids, the two
// forms --processes accepts.
func parsePeerList(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if strings.Contains(spec, "-") && !strings.Contains(spec, ",") {
		parts := strings.SplitN(spec, "-", 2)
		lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", spec, err)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", spec, err)
		}
		ids := make([]int, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			ids = append(ids, i)
		}
		return ids, nil
	}

	var ids []int
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid peer id %q: %w", field, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// runPeer starts a single process bound to host/port and treats each line of stdin as content to multicast to every
// known peer until EOF or a termination signal.
func runPeer(id int, host string, port int, processesSpec string, debug bool) error {
	peers, err := parsePeerList(processesSpec)
	if err != nil {
		return err
	}

	config := mcast.DefaultConfiguration(id)
	config.Host = host
	if port != 0 {
		config.Port = port
	}
	logger := definition.NewDefaultLogger(id)
	logger.ToggleDebug(debug)
	config.Logger = logger

	process := mcast.NewProcess(config)
	if err := process.Start(peers); err != nil {
		return err
	}
	defer process.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	linesCh := make(chan string)
	go func() {
		defer close(linesCh)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			linesCh <- scanner.Text()
		}
	}()

	for {
		select {
		case <-sigCh:
			return nil
		case line, ok := <-linesCh:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			process.Multicast(line, nil)
		}
	}
}

// runDemo wires n in-process peers to each other and has each one
// multicast a single greeting, then prints every peer's event log — a
// quick way to see ordered delivery without hand-running
// several processes.
func runDemo(n int) {
	if n < 2 {
		n = 2
	}

	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}

	processes := make([]*mcast.Process, n)
	for i, id := range ids {
		config := mcast.DefaultConfiguration(id)
		config.Port = 9000 + id
		processes[i] = mcast.NewProcess(config)
	}

	for _, p := range processes {
		if err := p.Start(ids); err != nil {
			fmt.Fprintf(os.Stderr, "mcastpeer: demo peer %d failed to start: %v\n", p.ID(), err)
			os.Exit(1)
		}
		for _, id := range ids {
			if id != p.ID() {
				p.RegisterPeer(id, "localhost", 9000+id)
			}
		}
	}

	for _, p := range processes {
		p.Multicast(fmt.Sprintf("hello from peer %d", p.ID()), nil)
	}

	time.Sleep(2 * time.Second)

	for _, p := range processes {
		fmt.Printf("=== peer %d ===\n", p.ID())
		p.DumpLog(os.Stdout, 0)
	}

	for _, p := range processes {
		p.Stop()
	}
}
