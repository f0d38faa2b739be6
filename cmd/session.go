package cmd

import (
	"context"
	"time"

	"github.com/melodeck/melodeck/assistant"
	"github.com/melodeck/melodeck/auth"
	"github.com/melodeck/melodeck/history"
	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/locate"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/network"
	"github.com/melodeck/melodeck/playback"
	"github.com/melodeck/melodeck/player"
	"github.com/melodeck/melodeck/resolver"
	"github.com/melodeck/melodeck/server"
	"github.com/melodeck/melodeck/track"
	"github.com/melodeck/melodeck/where"
	"github.com/spf13/viper"
)

var locator = locate.New(nil)

func milliseconds(k string) time.Duration {
	return time.Duration(viper.GetInt(k)) * time.Millisecond
}

func socketAddress() string {
	if socket := viper.GetString(key.PlayerSocket); socket != "" {
		return socket
	}
	return where.Socket()
}

func playerDependency() locate.Dependency {
	return locate.Dependency{Name: "mpv", Candidates: viper.GetStringSlice(key.PlayerCandidates)}
}

func resolverDependency() locate.Dependency {
	return locate.Dependency{Name: "yt-dlp", Candidates: viper.GetStringSlice(key.ResolverCandidates)}
}

func newTransport() *player.Transport {
	return player.NewTransport(player.TransportOptions{
		Socket:  socketAddress(),
		Dial:    player.DialSocket,
		Timeout: milliseconds(key.IPCTimeoutMs),
		Retries: viper.GetInt(key.IPCConnectRetries),
		Backoff: milliseconds(key.IPCConnectBackoffMs),
	})
}

func newSupervisor() *player.Supervisor {
	return player.NewSupervisor(player.SupervisorOptions{
		Binary: func(ctx context.Context) (string, error) {
			return locator.Resolve(ctx, playerDependency())
		},
		Socket: socketAddress(),
		Grace:  milliseconds(key.PlayerGraceMs),
	})
}

// session owns the long-lived playback stack of a play or serve invocation.
type session struct {
	transport  *player.Transport
	supervisor *player.Supervisor
	controller *playback.Controller
}

func newGateway(ctx context.Context) (*resolver.Gateway, error) {
	ytdlp, err := locator.Resolve(ctx, resolverDependency())
	if err != nil {
		return nil, err
	}

	return resolver.New(resolver.Options{
		Runner:     resolver.YTDLP{Executable: ytdlp},
		Format:     viper.GetString(key.ResolverFormat),
		TTL:        time.Duration(viper.GetInt(key.CacheTTLMinutes)) * time.Minute,
		MaxEntries: viper.GetInt(key.CacheMaxEntries),
	}), nil
}

func newSession(ctx context.Context) (*session, error) {
	gateway, err := newGateway(ctx)
	if err != nil {
		return nil, err
	}

	s := &session{
		transport:  newTransport(),
		supervisor: newSupervisor(),
	}

	s.controller = playback.New(playback.Options{
		Resolver:   gateway,
		Supervisor: s.supervisor,
		Transport:  s.transport,
		Debounce:   milliseconds(key.PlaybackDebounceMs),
		Settle:     milliseconds(key.PlayerSettleMs),
		OnPlay: func(meta track.Meta) error {
			if !viper.GetBool(key.HistorySaveOnPlay) {
				return nil
			}
			return history.Record(meta)
		},
	})

	return s, nil
}

// service exposes the session to the server front ends.
func (s *session) service() *server.Service {
	svc := &server.Service{Player: s.controller}
	if _, err := auth.APIKey(); err == nil {
		svc.Chatter = newAssistant()
	} else {
		log.Debugf("assistant disabled: %v", err)
	}
	return svc
}

// close stops playback and releases the control socket.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.controller.Stop(ctx); err != nil {
		log.Warnf("session: stop: %v", err)
	}
	s.release()
}

// release frees the control socket without touching a running player.
func (s *session) release() {
	s.transport.Shutdown()
}

// newRemote controls a player started by another melodeck process.
func newRemote() (*playback.Remote, func()) {
	transport := newTransport()
	supervisor := newSupervisor()
	return playback.NewRemote(transport, supervisor.Sweep), transport.Shutdown
}

func newAssistant() *assistant.Client {
	return assistant.New(assistant.Options{
		HTTP:   network.Client,
		Model:  viper.GetString(key.AssistantModel),
		APIKey: auth.APIKey,
	})
}
