package main

import (
	"fmt"
	"math/rand"
	"os"
	"reflect"
	"strconv"
	"time"

	notify "github.com/bitly/go-notify"
	"github.com/cheggaaa/pb"
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/skratchdot/open-golang/open"
	"github.com/urfave/cli"
	bettererrors "github.com/xtuc/better-errors"

	"github.com/Infatoshi/rusteze/common"
	"github.com/Infatoshi/rusteze/common/messagebroker"
	"github.com/Infatoshi/rusteze/common/recording"
	"github.com/Infatoshi/rusteze/common/replay"
	"github.com/Infatoshi/rusteze/common/utils"
	"github.com/Infatoshi/rusteze/engine"
	"github.com/Infatoshi/rusteze/harness"
	"github.com/Infatoshi/rusteze/harness/input"
	"github.com/Infatoshi/rusteze/vizserver"
	viztypes "github.com/Infatoshi/rusteze/vizserver/types"
)

const (
	TIME_BEFORE_FORCE_QUIT = 10 * time.Second
)

func main() {
	rand.Seed(time.Now().UnixNano())

	app := makeapp()
	app.Run(os.Args)
}

func makeapp() *cli.App {
	app := cli.NewApp()
	app.Name = "rusteze"
	app.Description = "Play and record sessions against a rusteze simulation engine"

	app.Commands = []cli.Command{
		{
			Name:    "play",
			Aliases: []string{"p"},
			Usage:   "Drive a simulation instance from the browser and record the trajectory",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "engine", Value: "", Usage: "Address of the simulation engine (host:port); required"},
				cli.IntFlag{Name: "tps", Value: 60, Usage: "Number of ticks per second"},
				cli.IntFlag{Name: "port", Value: 8080, Usage: "Port serving the play page"},
				cli.Int64Flag{Name: "seed", Value: 42, Usage: "World seed"},
				cli.IntFlag{Name: "duration", Value: 60, Usage: "Session duration in seconds; 0 plays until quit"},
				cli.StringFlag{Name: "name", Value: "", Usage: "Session name; generated when empty"},
				cli.StringFlag{Name: "record-file", Value: "", Usage: "Destination file for recording the trajectory"},
				cli.BoolFlag{Name: "no-browser", Usage: "Disable automatic browser opening at start"},
				cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			},
			Action: func(c *cli.Context) error {
				engineAddr := c.String("engine")
				tps := c.Int("tps")
				port := c.Int("port")
				seed := c.Int64("seed")
				duration := c.Int("duration")
				name := c.String("name")
				recordFile := c.String("record-file")
				nobrowser := c.Bool("no-browser")
				isDebug := c.Bool("debug")
				playAction(engineAddr, tps, port, seed, duration, name, recordFile, nobrowser, isDebug)
				return nil
			},
		},
		{
			Name:    "replay",
			Aliases: []string{"r"},
			Usage:   "Summarize a recorded trajectory",
			ArgsUsage: "<trajectory-file>",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					return cli.NewExitError("Please specify a trajectory file", 1)
				}

				replayAction(c.Args().First())
				return nil
			},
		},
	}

	return app
}

func playAction(engineAddr string, tps int, port int, seed int64, durationSec int, name string, recordFile string, nobrowser bool, isDebug bool) {

	shutdownChan := make(chan bool)
	debug := func(str string) {}

	if isDebug {
		debug = func(str string) {
			fmt.Printf("debug %s\n", str)
		}
	} else {
		utils.LogFn = func(service, message string) {}
	}

	if engineAddr == "" {
		fmt.Println("Please, specify the simulation engine address using --engine")
		os.Exit(1)
	}

	if name == "" {
		name = petname.Generate(2, "-")
	}

	enginecfg := engine.DefaultConfig()
	enginecfg.Seed = seed
	enginecfg.NumInstances = 1

	instance, err := dialEngine(engineAddr, enginecfg)
	if err != nil {
		utils.FailWith(err)
	}

	tracker := input.NewTracker(input.DefaultPointerScale)
	dispatcher := input.NewDispatcher(tracker)

	// Make message broker client
	brokerclient, err := messagebroker.NewMemoryClient()
	utils.Check(err, "ERROR: Could not create message broker")

	var recorder recording.RecorderInterface = recording.MakeEmptyRecorder()
	if recordFile != "" {
		recorder = recording.MakeTrajectoryRecorder(recordFile)
	}

	session, err := harness.NewSession(harness.Config{
		TicksPerSecond: tps,
		Duration:       time.Duration(durationSec) * time.Second,
		Name:           name,
		Seed:           seed,
	}, instance, tracker, recorder, brokerclient)
	if err != nil {
		utils.FailWith(err)
	}

	session.AddTearDownCall(func() error {
		return instance.Close()
	})

	// consume session events
	go func() {
		events := session.Events()

		for {
			msg := <-events

			switch t := msg.(type) {
			case harness.EventStatusUpdate:
				fmt.Println(t.Status)

			case harness.EventLog:
				fmt.Println("log", t.Value)

			case harness.EventDebug:
				debug(t.Value)

			case harness.EventError:
				utils.WarnWith(t.Err)

			case harness.EventClose:
				return

			default:
				msg := fmt.Sprintf("Unsupported message of type %s", reflect.TypeOf(msg))
				panic(msg)
			}
		}
	}()

	// handling signals
	go func() {
		<-common.SignalHandler()
		shutdownChan <- true
	}()

	brokerclient.Subscribe("viz", "frame", func(msg messagebroker.BrokerMessage) {
		notify.PostTimeout("viz:frame:"+session.GetId(), string(msg.Data), time.Millisecond)
	})

	webclientpath := utils.GetExecutableDir() + "/webclient/"
	vizservice := vizserver.NewVizService(
		"0.0.0.0:"+strconv.Itoa(port),
		webclientpath,
		func() ([]viztypes.SessionDescriptionInterface, error) {
			return []viztypes.SessionDescriptionInterface{session}, nil
		},
		dispatcher,
	)

	if _, err := vizservice.Start(); err != nil {
		utils.FailWith(err)
	}

	sessionChan, startErr := session.Start()
	if startErr != nil {
		vizservice.Stop()
		utils.FailWith(startErr)
	}

	url := "http://localhost:" + strconv.Itoa(port) + "/session/" + session.GetId()

	if !nobrowser {
		open.Run(url)
	}

	fmt.Println("\033[0;34m\nSession " + name + " running at " + url + "\033[0m\n")

	if durationSec > 0 && !isDebug {
		go trackProgress(durationSec)
	}

	// Wait until someone asks for shutdown
	select {
	case <-sessionChan:
	case <-shutdownChan:
	}

	// Force quit if the programs didn't exit
	go func() {
		<-time.After(TIME_BEFORE_FORCE_QUIT)

		berror := bettererrors.New("Forced shutdown")

		utils.FailWith(berror)
	}()

	debug("Shutdown...")

	session.Stop()
	vizservice.Stop()
}

// dialEngine folds transport failures into a better-errors chain so
// the fatal path prints a report instead of a bare panic.
func dialEngine(engineAddr string, cfg engine.Config) (*engine.NetInstance, error) {
	instance, err := engine.DialInstance(engineAddr, cfg)
	if err != nil {
		return nil, bettererrors.
			New("Could not reach the simulation engine").
			SetContext("address", engineAddr).
			With(bettererrors.NewFromErr(err))
	}

	return instance, nil
}

func trackProgress(durationSec int) {
	bar := pb.New(durationSec)
	bar.SetWidth(80)
	bar.Start()

	ticker := time.Tick(time.Second)
	for elapsed := 0; elapsed < durationSec; elapsed++ {
		<-ticker
		bar.Increment()
	}

	bar.Finish()
}

func replayAction(filename string) {
	replayer, err := replay.NewReplayer(filename)
	if err != nil {
		utils.FailWith(err)
	}

	metadata, err := replayer.ReadMetadata()
	if err != nil {
		utils.FailWith(err)
	}

	fmt.Println("Session:  " + metadata.Name + " (" + metadata.SessionID + ")")
	fmt.Println("Date:     " + metadata.Date)
	fmt.Println("Tickrate: " + strconv.Itoa(metadata.TicksPerSecond) + " ticks/s")
	fmt.Println("Frame:    " + strconv.Itoa(metadata.ObsWidth) + "x" + strconv.Itoa(metadata.ObsHeight) + "x" + strconv.Itoa(metadata.ObsChannels))
	fmt.Println("Seed:     " + strconv.FormatInt(metadata.Seed, 10))

	steps := 0
	episodes := 0
	totalReward := 0.0

	for step := range replayer.ReadSteps() {
		steps++
		totalReward += step.Reward
		if step.Done {
			episodes++
		}
	}

	fmt.Println("")
	fmt.Println("Steps:          " + strconv.Itoa(steps))
	fmt.Println("Episodes ended: " + strconv.Itoa(episodes))
	fmt.Println("Total reward:   " + strconv.FormatFloat(totalReward, 'f', 2, 64))
}
