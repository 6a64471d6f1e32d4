package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/audioconvertnode/internal/anode"
	"github.com/linuxmatters/audioconvertnode/internal/audio"
	"github.com/linuxmatters/audioconvertnode/internal/cli"
	"github.com/linuxmatters/audioconvertnode/internal/format"
	"github.com/linuxmatters/audioconvertnode/internal/kernels"
	"github.com/linuxmatters/audioconvertnode/internal/logging"
	"github.com/linuxmatters/audioconvertnode/internal/platform"
	"github.com/linuxmatters/audioconvertnode/internal/ui"
)

// version is set via ldflags at build time.
// Local dev builds: "dev"
// Release builds: git tag (e.g. "0.1.0")
var version = "dev"

// CLI defines the command-line interface: a single input/output WAV pair
// driven through one audioconvertnode.
type CLI struct {
	Version bool `short:"v" help:"Show version information"`
	Debug   bool `short:"d" help:"Enable debug logging to stderr"`

	Rate            uint32 `help:"Output sample rate in Hz (0 = same as input)" default:"0"`
	Channels        uint32 `help:"Output channel count (0 = same as input)" default:"0"`
	ChannelMap      string `help:"Comma-separated output channel positions (e.g. FR,FL)"`
	Volume          float64 `help:"Output master volume" default:"1.0"`
	Mute            bool   `help:"Mute the output"`
	ResampleQuality int    `help:"Resampler quality 0-4" default:"4"`

	Input  string `arg:"" name:"input" help:"Input WAV file" type:"existingfile"`
	Output string `arg:"" name:"output" help:"Output WAV file"`
}

func main() {
	cliArgs := &CLI{}
	kong.Parse(cliArgs,
		kong.Name("audioconvertctl"),
		kong.Description("Drives an audio-conversion processing node over WAV files"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if err := run(cliArgs); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

func run(cliArgs *CLI) error {
	reader, _, err := audio.OpenAudioFile(cliArgs.Input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer reader.Close()

	inFmt := reader.Format()

	outChannels := cliArgs.Channels
	if outChannels == 0 {
		outChannels = inFmt.Channels
	}
	outRate := cliArgs.Rate
	if outRate == 0 {
		outRate = inFmt.Rate
	}

	outPositions := format.DefaultPositionsFor(int(outChannels))
	if cliArgs.ChannelMap != "" {
		parsed, err := parsePositions(cliArgs.ChannelMap)
		if err != nil {
			return err
		}
		if uint32(len(parsed)) != outChannels {
			return fmt.Errorf("--channel-map lists %d positions, want %d", len(parsed), outChannels)
		}
		outPositions = parsed
	}
	outFmt := format.Format{
		Encoding:    inFmt.Encoding,
		Interleaved: true,
		Rate:        outRate,
		Channels:    outChannels,
		Position:    outPositions,
	}

	writer, err := audio.CreateAudioFile(cliArgs.Output, outFmt)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer writer.Close()

	var nodeLogger platform.Logger = platform.NopLogger{}
	if cliArgs.Debug {
		nodeLogger = platform.NewLogger("audioconvertctl")
	}

	n := anode.New(platform.DetectCPU(), nodeLogger)
	if err := n.SetPortConfig(anode.PortConfigRequest{Direction: anode.DirInput, Mode: anode.ModeConvert}); err != nil {
		return fmt.Errorf("configure input port: %w", err)
	}
	if err := n.SetPortConfig(anode.PortConfigRequest{Direction: anode.DirOutput, Mode: anode.ModeConvert}); err != nil {
		return fmt.Errorf("configure output port: %w", err)
	}
	if err := n.SetPortFormat(anode.DirInput, inFmt); err != nil {
		return fmt.Errorf("set input format: %w", err)
	}
	if err := n.SetPortFormat(anode.DirOutput, outFmt); err != nil {
		return fmt.Errorf("set output format: %w", err)
	}

	volume := float32(cliArgs.Volume)
	mute := cliArgs.Mute
	quality := cliArgs.ResampleQuality
	if err := n.ApplyProps(anode.PropUpdate{Volume: &volume, Mute: &mute, ResampleQuality: &quality}); err != nil {
		return fmt.Errorf("apply props: %w", err)
	}

	if err := n.SendCommand(anode.CommandStart); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	quantum := int(n.QuantumLimit)
	inStride := int(inFmt.Stride())
	outStride := int(outFmt.Stride())

	inBuf := make([]byte, quantum*inStride)
	outBuf := make([]byte, quantum*outStride*4) // headroom for upsampling ratios

	inPort := n.In.Ports[0]
	outPort := n.Out.Ports[0]
	inPort.IO = &anode.IOBuffers{}
	inPort.Buffers = []anode.BufferDesc{{ID: 0, Data: [][]byte{inBuf}, MaxSize: uint32(len(inBuf)), Dynamic: true}}
	outPort.IO = &anode.IOBuffers{}
	if err := n.UseBuffers(anode.DirOutput, 0, []anode.BufferDesc{{ID: 0, Data: [][]byte{outBuf}, MaxSize: uint32(len(outBuf)), Dynamic: true}}); err != nil {
		return fmt.Errorf("register output buffer: %w", err)
	}

	model := ui.NewModel(cliArgs.Input, cliArgs.Output)
	prog := tea.NewProgram(model, tea.WithAltScreen())

	go driveTicks(prog, n, reader, writer, inPort, outPort, inBuf, outBuf, quantum, inStride)

	if _, err := prog.Run(); err != nil {
		return err
	}

	printNegotiationSummary(inFmt, outFmt)
	return nil
}

// printNegotiationSummary prints the Input/Output format the node settled
// on once the TUI has exited.
func printNegotiationSummary(inFmt, outFmt format.Format) {
	table := logging.NewMetricTable("Input", "Output")
	table.AddRow("Sample Rate", []string{
		logging.FormatMetric(float64(inFmt.Rate), 0),
		logging.FormatMetric(float64(outFmt.Rate), 0),
	}, "Hz", "")
	table.AddRow("Channels", []string{
		logging.FormatMetric(float64(inFmt.Channels), 0),
		logging.FormatMetric(float64(outFmt.Channels), 0),
	}, "", "")
	table.AddRow("Bytes/Frame", []string{
		logging.FormatMetric(float64(inFmt.Stride()), 0),
		logging.FormatMetric(float64(outFmt.Stride()), 0),
	}, "", "")
	fmt.Println(table.String())
}

// driveTicks pulls frames from reader, drives the node tick by tick, and
// writes each tick's published output to writer, reporting progress through
// prog.
func driveTicks(prog *tea.Program, n *anode.Node, reader *audio.Reader, writer *audio.Writer, inPort, outPort *anode.Port, inBuf, outBuf []byte, quantum, inStride int) {
	var ticks int
	var framesOut int64

	for {
		data, frames, err := reader.ReadFrames(quantum)
		if err != nil {
			prog.Send(ui.DoneMsg{Ticks: ticks, FramesOut: framesOut, Err: err})
			return
		}
		if frames == 0 {
			break
		}
		copy(inBuf, data)
		inPort.IO.Status = anode.IOStatusHaveData
		inPort.IO.BufferID = 0
		inPort.IO.Chunks = []anode.Chunk{{Offset: 0, Size: uint32(frames * inStride)}}

		n.Process()
		ticks++

		if len(outPort.IO.Chunks) > 0 {
			chunk := outPort.IO.Chunks[0]
			if chunk.Size > 0 {
				outFrames := int(chunk.Size) / int(n.Out.Format.Stride())
				if err := writer.WriteFrames(outBuf[chunk.Offset:chunk.Offset+chunk.Size], outFrames); err != nil {
					prog.Send(ui.DoneMsg{Ticks: ticks, FramesOut: framesOut, Err: err})
					return
				}
				framesOut += int64(outFrames)
			}
		}

		var rateMatchDelay int
		if n.RateMatch != nil {
			rateMatchDelay = n.RateMatch.Delay
		}
		mixPassthrough := n.Pipeline == nil || n.Pipeline.Mix == nil || n.Pipeline.Mix.Flags()&kernels.IdentityFlag != 0
		rateScale := n.RateScale
		if rateScale == 0 {
			rateScale = 1.0
		}
		resamplePassthrough := n.In.Format.Rate == n.Out.Format.Rate && rateScale == 1.0 && n.Props.Rate == 1.0 &&
			(n.RateMatch == nil || !n.RateMatch.Active)
		prog.Send(ui.TickMsg{
			Tick:                ticks,
			FramesOut:           framesOut,
			InPassthrough:       n.In.Passthrough,
			MixPassthrough:      mixPassthrough,
			ResamplePassthrough: resamplePassthrough,
			OutPassthrough:      n.Out.Passthrough,
			RateMatchDelay:      rateMatchDelay,
		})
	}

	prog.Send(ui.DoneMsg{Ticks: ticks, FramesOut: framesOut})
}

// parsePositions parses a comma-separated list of channel position names
// (e.g. "FR,FL") into format.Position values.
func parsePositions(s string) ([]format.Position, error) {
	names := strings.Split(s, ",")
	out := make([]format.Position, len(names))
	for i, name := range names {
		p, ok := positionByName[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown channel position %q", name)
		}
		out[i] = p
	}
	return out, nil
}

var positionByName = map[string]format.Position{
	"MONO": format.Mono,
	"FL":   format.FL,
	"FR":   format.FR,
	"FC":   format.FC,
	"LFE":  format.LFE,
	"SL":   format.SL,
	"SR":   format.SR,
	"RL":   format.RL,
	"RR":   format.RR,
	"RC":   format.RC,
	"FLC":  format.FLC,
	"FRC":  format.FRC,
	"TC":   format.TC,
}
