package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/adapters/microphone"
	"github.com/satriahrh/robozinho/adapters/speaker"
	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/repositories"
	"github.com/satriahrh/robozinho/internal/app"
	"github.com/satriahrh/robozinho/internal/capture"
	"github.com/satriahrh/robozinho/internal/client"
	"github.com/satriahrh/robozinho/internal/config"
	"github.com/satriahrh/robozinho/internal/transcript"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	textMode := flag.Bool("text", false, "type prompts instead of speaking them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.ValidateClient(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := readLines()

	fmt.Print("Código do robô (ENTER para usar o padrão): ")
	robotCode, ok := next(ctx, lines)
	if !ok {
		return
	}
	if robotCode = strings.TrimSpace(robotCode); robotCode == "" {
		robotCode = cfg.Client.RobotCode
	}

	invoker, closeInvoker, err := app.Invoker(cfg.Client, logger)
	if err != nil {
		logger.Fatal("Failed to create invoker", zap.Error(err))
	}
	defer closeInvoker()

	player, closePlayer := newPlayer(cfg.Client, logger)
	defer closePlayer()

	conv := client.NewConversation(invoker, cfg.Client.Action, robotCode, logger)

	if *textMode {
		runText(ctx, conv, player, lines, logger)
		return
	}

	speech, closeSpeech, err := app.SpeechToText(ctx, cfg.Client, logger)
	if err != nil {
		logger.Fatal("Failed to create speech-to-text", zap.Error(err))
	}
	defer closeSpeech()

	mic, err := microphone.NewPortAudioMicrophone(cfg.Client.SampleRate, logger)
	if err != nil {
		logger.Fatal("Failed to open microphone", zap.Error(err))
	}
	defer mic.Close()

	transcriber := transcript.NewStreamingTranscriber(speech, transcript.Config{
		Audio: repositories.AudioConfig{
			SampleRate: cfg.Client.SampleRate,
			Encoding:   "LINEAR16",
			Language:   cfg.Client.LanguageCode,
		},
		ChunkDuration: cfg.Client.ChunkDuration,
		RealTime:      cfg.Client.RealTimeUpload,
	}, logger)

	runVoice(ctx, conv, player, lines, func() *capture.Session {
		return capture.NewSession(mic, transcriber, logger, capture.WithPollInterval(cfg.Client.PollInterval))
	}, logger)
}

// runText sends typed prompts until q or end of input
func runText(ctx context.Context, conv *client.Conversation, player client.Player, lines <-chan string, logger *zap.Logger) {
	for {
		fmt.Print("> ")
		line, ok := next(ctx, lines)
		if !ok || isQuit(line) {
			return
		}
		respond(ctx, conv, player, strings.TrimSpace(line), logger)
	}
}

// runVoice records one utterance per ENTER pair until q or end of input
func runVoice(ctx context.Context, conv *client.Conversation, player client.Player, lines <-chan string, newSession func() *capture.Session, logger *zap.Logger) {
	for {
		fmt.Println("Pressione ENTER para falar (q para sair).")
		line, ok := next(ctx, lines)
		if !ok || isQuit(line) {
			return
		}

		session := newSession()
		if err := session.Start(); err != nil {
			logger.Error("Failed to start capture", zap.Error(err))
			continue
		}
		fmt.Println("Gravando... pressione ENTER para parar.")

		line, ok = next(ctx, lines)
		quit := !ok || isQuit(line)
		if quit {
			session.Cancel()
		} else {
			session.RequestStop()
		}

		text, err := session.AwaitFinalizedText(ctx)
		if quit {
			return
		}
		switch {
		case errors.Is(err, domain.ErrNoAudio):
			fmt.Println("Nenhum áudio capturado.")
			continue
		case err != nil:
			logger.Error("Transcription failed", zap.Error(err))
			continue
		}

		fmt.Printf("Você: %s\n", text)
		respond(ctx, conv, player, text, logger)
	}
}

func respond(ctx context.Context, conv *client.Conversation, player client.Player, prompt string, logger *zap.Logger) {
	reply, err := conv.Respond(ctx, prompt, player)
	switch {
	case errors.Is(err, client.ErrEmptyPrompt):
		fmt.Println("Nada foi entendido, tente de novo.")
		return
	case reply == nil && err != nil:
		logger.Error("Turn failed", zap.Error(err))
		fmt.Println("Não consegui responder agora.")
		return
	case err != nil:
		logger.Warn("Playback failed", zap.Error(err))
	}
	fmt.Printf("Robozinho: %s\n", reply.Response)
}

// newPlayer opens the speaker, optionally saving every reply to a WAV file. Without an
// audio device the replies are only saved, or dropped.
func newPlayer(cfg config.ClientConfig, logger *zap.Logger) (client.Player, func()) {
	var sink speaker.Player
	closer := func() {}

	device, err := speaker.NewPortAudioPlayer(logger)
	if err != nil {
		logger.Warn("Speaker unavailable", zap.Error(err))
	} else {
		sink = device
		closer = func() { device.Close() }
	}

	if cfg.SaveWAVDir == "" {
		if sink == nil {
			return nil, closer
		}
		return sink, closer
	}

	recorder, err := speaker.NewRecorder(sink, cfg.SaveWAVDir, logger)
	if err != nil {
		logger.Warn("WAV recording disabled", zap.Error(err))
		if sink == nil {
			return nil, closer
		}
		return sink, closer
	}
	return recorder, closer
}

func readLines() <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func next(ctx context.Context, lines <-chan string) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-lines:
		return line, ok
	}
}

func isQuit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "q")
}
