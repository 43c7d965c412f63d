// Package console provides the interactive command-line interface
// for uxr-service.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/uxr-project/uxr-go/pkg/engine"
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/subscriber"
	"github.com/uxr-project/uxr-go/pkg/vehicle"
)

// Engine is the part of the restriction engine the console inspects.
type Engine interface {
	CurrentRestrictions() restriction.Snapshot
	Mode() engine.Mode
	IsFallback() bool
	SubscriberCount() int
	Subscribers() []subscriber.Channel
	Dump(w io.Writer) error
}

// DrivingState is the simulated driving-state source.
type DrivingState interface {
	CurrentState() vehicle.DrivingStateEvent
	SetState(state vehicle.DrivingState) bool
}

// Speed is the simulated speed sensor.
type Speed interface {
	LatestSpeed() float32
	SetSpeed(speed float32)
}

// Env is what the console operates on.
type Env struct {
	Engine       Engine
	DrivingState DrivingState
	Speed        Speed

	// Connections returns the number of open TCP connections. Optional.
	Connections func() int
}

// Console handles interactive mode for uxr-service.
type Console struct {
	env Env
	rl  *readline.Instance

	sim *Simulation
}

// New creates a console attached to the terminal. Commands are available
// once Attach has been called.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "uxr> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl}, nil
}

// Attach sets the environment the commands operate on. A nil sim gets a
// stopped drive cycle over env's sources.
func (c *Console) Attach(env Env, sim *Simulation) {
	if sim == nil {
		sim = NewSimulation(env.DrivingState, env.Speed, DefaultStepInterval)
	}
	c.env = env
	c.sim = sim
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Close releases the terminal. A pending Run returns.
func (c *Console) Close() error {
	return c.rl.Close()
}

// Run starts the interactive command loop. cancel is called when the user quits.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

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
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return
		}

		if quit := Execute(out, c.env, c.sim, line); quit {
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the user asked to quit.
// sim may be nil, which disables the sim command.
func Execute(w io.Writer, env Env, sim *Simulation, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		printHelp(w)

	case "state", "st":
		cmdState(w, env, args)

	case "speed", "sp":
		cmdSpeed(w, env, args)

	case "status", "s":
		cmdStatus(w, env)

	case "dump", "d":
		if err := env.Engine.Dump(w); err != nil {
			fmt.Fprintf(w, "Dump failed: %v\n", err)
		}

	case "subscribers", "subs":
		cmdSubscribers(w, env)

	case "sim":
		cmdSim(w, sim, args)

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(w, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `
Commands:
  state <parked|idling|moving|unknown>  Set the simulated driving state
  speed <m/s>                            Set the simulated speed
  status                                 Show mode, inputs and restrictions
  dump                                   Print the engine diagnostic dump
  subscribers                            List registered subscribers
  sim <start|stop>                       Run or stop the drive cycle
  help                                   Show this help
  quit                                   Exit
`)
}

func cmdState(w io.Writer, env Env, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(w, "Usage: state <parked|idling|moving|unknown>")
		return
	}
	state, err := vehicle.ParseDrivingState(args[0])
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	if !env.DrivingState.SetState(state) {
		fmt.Fprintf(w, "Driving state already %s\n", state)
		return
	}
	fmt.Fprintf(w, "Driving state: %s -> %s\n", state, env.Engine.CurrentRestrictions().ActiveRestrictions)
}

func cmdSpeed(w io.Writer, env Env, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(w, "Usage: speed <m/s>")
		return
	}
	v, err := strconv.ParseFloat(args[0], 32)
	if err != nil || v < 0 {
		fmt.Fprintf(w, "Error: invalid speed %q\n", args[0])
		return
	}
	env.Speed.SetSpeed(float32(v))
	fmt.Fprintf(w, "Speed: %.2f m/s -> %s\n", v, env.Engine.CurrentRestrictions().ActiveRestrictions)
}

func cmdStatus(w io.Writer, env Env) {
	snap := env.Engine.CurrentRestrictions()

	fmt.Fprintln(w, "Service status:")
	fmt.Fprintf(w, "  Mode:          %s\n", env.Engine.Mode())
	fmt.Fprintf(w, "  Fallback:      %v\n", env.Engine.IsFallback())
	fmt.Fprintf(w, "  Driving state: %s\n", env.DrivingState.CurrentState().State)
	fmt.Fprintf(w, "  Speed:         %.2f m/s\n", env.Speed.LatestSpeed())
	fmt.Fprintf(w, "  Restrictions:  %s\n", snap.ActiveRestrictions)
	fmt.Fprintf(w, "  DO required:   %v\n", snap.RequiresDistractionOptimization)
	fmt.Fprintf(w, "  Subscribers:   %d\n", env.Engine.SubscriberCount())
	if env.Connections != nil {
		fmt.Fprintf(w, "  Connections:   %d\n", env.Connections())
	}
}

func cmdSubscribers(w io.Writer, env Env) {
	subs := env.Engine.Subscribers()
	if len(subs) == 0 {
		fmt.Fprintln(w, "No subscribers")
		return
	}
	for i, ch := range subs {
		fmt.Fprintf(w, "  %d. %s\n", i+1, ch.ID())
	}
}

func cmdSim(w io.Writer, sim *Simulation, args []string) {
	if sim == nil {
		fmt.Fprintln(w, "Simulation not available")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(w, "Usage: sim <start|stop>")
		return
	}
	switch strings.ToLower(args[0]) {
	case "start":
		if !sim.Start() {
			fmt.Fprintln(w, "Simulation already running")
			return
		}
		fmt.Fprintln(w, "[SIM] Drive cycle started")
	case "stop":
		if !sim.Stop() {
			fmt.Fprintln(w, "Simulation not running")
			return
		}
		fmt.Fprintln(w, "[SIM] Drive cycle stopped")
	default:
		fmt.Fprintln(w, "Usage: sim <start|stop>")
	}
}

// DefaultStepInterval is the time between drive cycle steps.
const DefaultStepInterval = 3 * time.Second

// Step is one point of the drive cycle.
type Step struct {
	State vehicle.DrivingState
	Speed float32
}

// DriveCycle parks, pulls away, accelerates through the speed bands and
// comes back to a stop.
var DriveCycle = []Step{
	{vehicle.DrivingStateParked, 0},
	{vehicle.DrivingStateIdling, 0},
	{vehicle.DrivingStateMoving, 2},
	{vehicle.DrivingStateMoving, 8},
	{vehicle.DrivingStateMoving, 15},
	{vehicle.DrivingStateMoving, 4},
	{vehicle.DrivingStateIdling, 0},
}

// Simulation steps the vehicle sources through DriveCycle on a ticker.
type Simulation struct {
	state    DrivingState
	speed    Speed
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stepIdx int
}

// NewSimulation creates a stopped simulation.
func NewSimulation(state DrivingState, speed Speed, interval time.Duration) *Simulation {
	if interval <= 0 {
		interval = DefaultStepInterval
	}
	return &Simulation{state: state, speed: speed, interval: interval}
}

// Start begins stepping. Returns false if already running.
func (s *Simulation) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	return true
}

// Stop halts stepping and waits for the loop to exit. Returns false if not running.
func (s *Simulation) Stop() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

// Running reports whether the drive cycle is active.
func (s *Simulation) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Simulation) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Advance()
		}
	}
}

// Advance applies the next step of the cycle. Speed is set before the
// state so a state change sees the new speed.
func (s *Simulation) Advance() Step {
	s.mu.Lock()
	step := DriveCycle[s.stepIdx%len(DriveCycle)]
	s.stepIdx++
	s.mu.Unlock()

	s.speed.SetSpeed(step.Speed)
	s.state.SetState(step.State)
	return step
}
