package usecase

import (
	"context"
	"errors"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/domain/repositories"
)

// Event bus topics published by VoiceChat.
const (
	// TopicStateChanged carries an entities.InteractionState.
	TopicStateChanged = "voicechat:state"
	// TopicMessage carries an entities.ChatMessage.
	TopicMessage = "voicechat:message"
)

// Chat log lines written by VoiceChat itself.
const (
	MessageStoppedListening     = "You stopped the listening"
	MessageCancelledProcessing  = "You cancelled the processing"
	MessageStoppedResponse      = "You stopped the response."
	MessageSynthesisUnsupported = "Text-to-speech is not supported on this device."
	MessageProcessingFailed     = "Error processing audio. Please try again."
	MessageCaptureBusy          = "Still finishing the previous recording. Please try again."
)

// VoiceChat drives one listen, relay and speak cycle at a time. Every
// asynchronous result is tagged with the generation it was started under and
// dropped if the interaction has moved on since.
type VoiceChat struct {
	capture  *CaptureController
	relay    repositories.Relay
	synth    repositories.Synthesizer
	selector *VoiceSelector
	style    entities.SpeechStyle
	session  *entities.Session
	bus      evbus.Bus
	logger   *zap.Logger

	mu          sync.Mutex
	interaction *entities.Interaction
	cancelWork  context.CancelFunc

	wg sync.WaitGroup
}

// NewVoiceChat wires the cycle. synth may be nil when no speech engine is
// available; replies are then only logged to the chat.
func NewVoiceChat(
	capture *CaptureController,
	relay repositories.Relay,
	synth repositories.Synthesizer,
	selector *VoiceSelector,
	style entities.SpeechStyle,
	bus evbus.Bus,
	logger *zap.Logger,
) *VoiceChat {
	return &VoiceChat{
		capture:     capture,
		relay:       relay,
		synth:       synth,
		selector:    selector,
		style:       style,
		session:     entities.NewSession(uuid.NewString()),
		bus:         bus,
		logger:      logger,
		interaction: entities.NewInteraction(),
	}
}

// State returns the current interaction state.
func (v *VoiceChat) State() entities.InteractionState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.interaction.State()
}

// StopEnabled reports whether StopAll would change anything.
func (v *VoiceChat) StopEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.interaction.StopEnabled()
}

// Session returns the chat log of this run.
func (v *VoiceChat) Session() *entities.Session {
	return v.session
}

// ToggleListening starts listening from Idle and stops it from Listening.
// In any other state it does nothing.
func (v *VoiceChat) ToggleListening(ctx context.Context) error {
	switch v.State() {
	case entities.StateIdle:
		return v.StartListening(ctx)
	case entities.StateListening:
		return v.StopListening(ctx)
	default:
		v.logger.Debug("Ignoring toggle while busy", zap.Stringer("state", v.State()))
		return nil
	}
}

// StartListening acquires the microphone and starts recording.
func (v *VoiceChat) StartListening(ctx context.Context) error {
	v.mu.Lock()
	gen, err := v.interaction.Start()
	state := v.interaction.State()
	v.mu.Unlock()
	if err != nil {
		return err
	}
	v.publishState(state)

	if err := v.capture.Start(ctx); err != nil {
		if v.settle(gen, v.interaction.Fail) {
			message := domain.MessageOf(err, MessageMicrophoneUnavailable)
			if errors.Is(err, ErrCaptureActive) {
				message = MessageCaptureBusy
			}
			v.addMessage(entities.SenderSystem, message)
		}
		return err
	}

	// Cancelled while the device was being acquired.
	v.mu.Lock()
	current := v.interaction.Generation() == gen && v.interaction.State() == entities.StateListening
	v.mu.Unlock()
	if !current {
		v.capture.Cancel()
	}
	return nil
}

// StopListening finalizes the recording and relays it in the background.
func (v *VoiceChat) StopListening(ctx context.Context) error {
	v.mu.Lock()
	gen := v.interaction.Generation()
	if err := v.interaction.Finish(gen); err != nil {
		v.mu.Unlock()
		return err
	}
	state := v.interaction.State()
	// Detached now so a recording started after a cancel is never taken by
	// this worker.
	rec := v.capture.take()
	workCtx, cancel := context.WithCancel(ctx)
	v.cancelWork = cancel
	v.wg.Add(1)
	v.mu.Unlock()

	// Published before the work starts so subscribers see states in order.
	v.publishState(state)
	go v.process(workCtx, cancel, gen, rec)
	return nil
}

// StopAll returns to Idle from any state, discarding whatever was in flight.
func (v *VoiceChat) StopAll() {
	v.mu.Lock()
	previous := v.interaction.Cancel()
	state := v.interaction.State()
	cancel := v.cancelWork
	v.cancelWork = nil
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	switch previous {
	case entities.StateIdle:
		return
	case entities.StateListening:
		v.capture.Cancel()
		v.addMessage(entities.SenderSystem, MessageStoppedListening)
	case entities.StateProcessing:
		v.addMessage(entities.SenderSystem, MessageCancelledProcessing)
	case entities.StateSpeaking:
		if v.synth != nil {
			v.synth.Stop()
		}
		v.addMessage(entities.SenderSystem, MessageStoppedResponse)
	}

	v.logger.Info("Stopped", zap.Stringer("from", previous))
	v.publishState(state)
}

// Close stops everything and waits for background work to finish.
func (v *VoiceChat) Close() {
	v.StopAll()
	v.wg.Wait()
}

func (v *VoiceChat) process(ctx context.Context, cancel context.CancelFunc, gen uint64, rec *recording) {
	defer v.wg.Done()
	defer cancel()

	// Stopped while the device was still being acquired.
	if rec == nil {
		v.fail(gen, ErrCaptureInactive)
		return
	}

	blob, err := v.capture.finish(ctx, rec)
	if err != nil {
		v.fail(gen, err)
		return
	}

	text, err := v.relay.Send(ctx, blob)
	if err != nil {
		v.fail(gen, err)
		return
	}

	if !v.settle(gen, v.interaction.Respond) {
		v.logger.Debug("Dropping stale relay response", zap.Uint64("generation", gen))
		return
	}
	v.addMessage(entities.SenderAI, text)

	v.speak(ctx, gen, text)
}

func (v *VoiceChat) speak(ctx context.Context, gen uint64, text string) {
	if v.synth == nil {
		v.addMessage(entities.SenderSystem, MessageSynthesisUnsupported)
		v.settle(gen, v.interaction.Done)
		return
	}

	var voice *entities.Voice
	if v.selector != nil {
		voice = v.selector.VoiceFor(ctx, text)
	}

	err := v.synth.Speak(ctx, text, voice, v.style)
	if !v.settle(gen, v.interaction.Done) {
		return
	}
	if err != nil {
		v.logger.Error("Speech synthesis error", zap.Error(err))
		v.addMessage(entities.SenderSystem, MessageStoppedResponse)
	}
}

func (v *VoiceChat) fail(gen uint64, err error) {
	if !v.settle(gen, v.interaction.Fail) {
		v.logger.Debug("Dropping stale failure", zap.Uint64("generation", gen), zap.Error(err))
		return
	}
	v.logger.Error("Error processing audio", zap.Error(err))
	v.addMessage(entities.SenderSystem, domain.MessageOf(err, MessageProcessingFailed))
}

// settle applies a generation-tagged transition and publishes the new state.
// It reports false when the result is stale.
func (v *VoiceChat) settle(gen uint64, transition func(uint64) error) bool {
	v.mu.Lock()
	err := transition(gen)
	state := v.interaction.State()
	v.mu.Unlock()
	if err != nil {
		return false
	}
	v.publishState(state)
	return true
}

func (v *VoiceChat) addMessage(sender entities.Sender, text string) {
	message := v.session.AddMessage(sender, text)
	v.bus.Publish(TopicMessage, message)
}

func (v *VoiceChat) publishState(state entities.InteractionState) {
	v.bus.Publish(TopicStateChanged, state)
}
