package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	evbus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/adapters/capture"
	"github.com/satriahrh/rev-voice/adapters/playback"
	"github.com/satriahrh/rev-voice/adapters/relay"
	"github.com/satriahrh/rev-voice/adapters/speaker"
	"github.com/satriahrh/rev-voice/adapters/speech"
	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/domain/repositories"
	"github.com/satriahrh/rev-voice/internal/config"
	"github.com/satriahrh/rev-voice/usecase"
)

const usage = "[Enter] talk / stop listening   [s] stop everything   [q] quit"

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		zap.NewExample().Fatal("Invalid configuration", zap.Error(err))
	}

	logger, _ := zap.NewProduction()
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relayClient, err := relay.NewClient(relay.ClientConfig{
		BaseURL: cfg.RelayURL,
		Timeout: cfg.RelayTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize relay client", zap.Error(err))
	}

	catalog := speech.NewCatalog(logger)
	synth := newSynthesizer(ctx, cfg, catalog, logger)

	bus := evbus.New()
	render(bus)

	chat := usecase.NewVoiceChat(
		usecase.NewCaptureController(capture.NewPortAudioMicrophone(cfg.SampleRate, logger), cfg.CaptureTick, logger),
		relayClient,
		synth,
		usecase.NewVoiceSelector(catalog, cfg.Gender, 0, logger),
		cfg.Speech,
		bus,
		logger,
	)
	defer chat.Close()

	fmt.Println(entities.StateIdle.Indicator(), entities.StateIdle.StatusText())
	fmt.Println(usage)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
				if err := chat.ToggleListening(ctx); err != nil {
					logger.Debug("Toggle rejected", zap.Error(err))
				}
			case "s":
				chat.StopAll()
			case "q":
				return
			default:
				fmt.Println(usage)
			}
		}
	}
}

// newSynthesizer builds the configured engine and fills the catalog in the
// background. A nil result means replies are shown but not spoken.
func newSynthesizer(ctx context.Context, cfg config.ClientConfig, catalog *speech.Catalog, logger *zap.Logger) repositories.Synthesizer {
	speakerConfig := speaker.Config{}
	loadVoices := func() ([]entities.Voice, error) {
		return speech.LoadVoices(cfg.VoiceCatalogFile)
	}

	if cfg.SpeechEngine == config.EngineElevenLabs {
		engine, err := speech.NewElevenLabsEngine(cfg.ElevenLabs, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Eleven Labs", zap.Error(err))
		}
		speakerConfig.Synthesize = engine.Synthesize
		speakerConfig.DefaultVoice = engine.DefaultVoice()
		loadVoices = func() ([]entities.Voice, error) {
			return engine.Voices(ctx)
		}
	}

	go func() {
		voices, err := loadVoices()
		if err != nil {
			logger.Error("Failed to load voice catalog", zap.Error(err))
			if cfg.SpeechEngine == config.EngineEdge {
				voices = speech.DefaultVoices
			}
		}
		catalog.Populate(voices)
	}()

	player, err := playback.NewPortAudioPlayer(logger)
	if err != nil {
		logger.Warn(usecase.MessageSynthesisUnsupported, zap.Error(err))
		return nil
	}
	speakerConfig.Player = player

	synth, err := speaker.NewSpeaker(speakerConfig, logger)
	if err != nil {
		logger.Warn(usecase.MessageSynthesisUnsupported, zap.Error(err))
		return nil
	}
	return synth
}

// render prints state changes and chat lines as they are published.
func render(bus evbus.Bus) {
	bus.Subscribe(usecase.TopicStateChanged, func(state entities.InteractionState) {
		fmt.Println(state.Indicator(), state.StatusText())
	})
	bus.Subscribe(usecase.TopicMessage, func(message entities.ChatMessage) {
		fmt.Printf("[%s] %s: %s\n", message.Timestamp.Format("15:04:05"), message.Sender, message.Text)
	})
}
