package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mlevasseur/chorus/internal/catalog"
	"github.com/mlevasseur/chorus/internal/config"
	"github.com/mlevasseur/chorus/internal/errmsg"
	"github.com/mlevasseur/chorus/internal/lyrics"
	"github.com/mlevasseur/chorus/internal/mpris"
	"github.com/mlevasseur/chorus/internal/playback"
	"github.com/mlevasseur/chorus/internal/player"
	"github.com/mlevasseur/chorus/internal/queue"
	"github.com/mlevasseur/chorus/internal/radio"
	"github.com/mlevasseur/chorus/internal/session"
	"github.com/mlevasseur/chorus/internal/state"
	"github.com/mlevasseur/chorus/internal/stderr"
	"github.com/mlevasseur/chorus/internal/stream"
	"github.com/mlevasseur/chorus/internal/ui/lyricview"
)

const seekStep = 5 * time.Second

// localFiles resolves track ids against the configured library
// directories. A local track's id is its path relative to a source
// root (or an absolute path).
type localFiles struct {
	roots []string
}

func (l localFiles) TrackByID(id string) (queue.Track, bool) {
	candidates := make([]string, 0, len(l.roots)+1)
	if filepath.IsAbs(id) {
		candidates = append(candidates, id)
	}
	for _, root := range l.roots {
		candidates = append(candidates, filepath.Join(root, id))
	}
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		return queue.Track{
			ID:       id,
			Matched:  true,
			Type:     queue.TypeLocal,
			FilePath: p,
		}, true
	}
	return queue.Track{}, false
}

// argTracks builds queue entries from command-line arguments.
func argTracks(args []string) []queue.Track {
	out := make([]queue.Track, 0, len(args))
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(arg)
			if err != nil {
				abs = arg
			}
			out = append(out, queue.Track{
				ID:       abs,
				Matched:  true,
				Type:     queue.TypeLocal,
				FilePath: abs,
			})
			continue
		}
		out = append(out, queue.Track{ID: arg, Type: queue.TypeOnline})
	}
	return out
}

type model struct {
	view     lyricview.Model
	svc      playback.Service
	sub      *playback.Subscription
	ply      *player.Player
	rad      *radio.Radio
	stateMgr *state.Manager
	mprisSrv *mpris.Adapter
}

func initialModel() (model, error) {
	cfg, err := config.Load()
	if err != nil {
		return model{}, fmt.Errorf("%s: %w", errmsg.OpConfigLoad, err)
	}

	stateMgr, err := state.Open()
	if err != nil {
		return model{}, fmt.Errorf("%s: %w", errmsg.OpInitialize, err)
	}

	var cat *catalog.Client
	if cfg.HasCatalog() {
		cat = catalog.NewClient(cfg.Catalog.URL, cfg.Catalog.APIKey)
		cat.FallbackSources = cfg.Catalog.FallbackSources
	}

	var streams session.StreamResolver
	if len(cfg.Streams) > 0 {
		servers := make([]stream.Server, len(cfg.Streams))
		for i, s := range cfg.Streams {
			servers[i] = stream.Server{Name: s.Name, URL: s.URL, Token: s.Token}
		}
		streams = stream.NewClient(servers)
	}

	cachePath := cfg.Lyrics.CachePath
	if cachePath == "" {
		cachePath, err = xdg.DataFile("chorus/lyrics.db")
		if err != nil {
			stateMgr.Close()
			return model{}, err
		}
	}
	cache, err := lyrics.OpenCache(cachePath)
	if err != nil {
		// A broken cache only costs repeated fetches.
		cache = nil
	}

	var fetcher lyrics.Fetcher
	var catClient session.CatalogClient
	var radioSource radio.Source
	if cat != nil {
		fetcher = cat
		catClient = cat
		radioSource = radio.SourceFunc(cat.RadioNext)
	}
	source := lyrics.NewSource(fetcher, cache)

	sess := session.New(localFiles{roots: cfg.LibrarySources}, streams, catClient, source)

	rc := cfg.GetRadioConfig()
	rad := radio.New(radioSource, radio.Config{
		Retries: rc.Retries,
		Backoff: rc.Backoff(),
	})

	ply := player.New()
	if ps, err := stateMgr.GetPlayerState(); err == nil && ps != nil {
		ply.SetVolume(ps.Volume)
		ply.SetMuted(ps.Muted)
	}

	svc := playback.New(ply, queue.New(), rad, sess, lyrics.Options{
		WordLevel:            cfg.Lyrics.WordLevelEnabled(),
		WordLevelTranslation: cfg.Lyrics.WordLevelTranslation,
	})
	svc.SetLyricOffset(cfg.Lyrics.OffsetSeconds)
	sub := svc.Subscribe()

	if qs, err := stateMgr.GetQueue(); err == nil && qs != nil {
		src := playback.PlaylistSource{Type: qs.SourceType, ID: qs.SourceID}
		svc.LoadQueue(src, qs.Tracks, qs.CurrentIndex, qs.PlayNext)
		svc.SetRepeatMode(qs.RepeatMode)
		svc.SetShuffle(qs.Shuffle)
		for _, id := range qs.RadioTrash {
			rad.MoveToTrash(id)
		}
		if qs.RadioEnabled || rc.Enabled {
			svc.SetRadio(true)
		}
	} else if rc.Enabled {
		svc.SetRadio(true)
	}

	// Arguments replace the restored queue: local paths play directly,
	// anything else is treated as a catalog or stream track id.
	if args := os.Args[1:]; len(args) > 0 {
		svc.ReplacePlaylist(playback.PlaylistSource{Type: "cli"}, argTracks(args), 0)
	}

	// MPRIS is best-effort: no session bus just means no media keys.
	mprisSrv, err := mpris.New(svc)
	if err != nil {
		mprisSrv = nil
	}

	return model{
		view:     lyricview.New(cfg.Lyrics.WordLevelEnabled()),
		svc:      svc,
		sub:      sub,
		ply:      ply,
		rad:      rad,
		stateMgr: stateMgr,
		mprisSrv: mprisSrv,
	}, nil
}

func (m model) Init() tea.Cmd {
	return lyricview.Listen(m.svc, m.sub)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.shutdown()
			return m, tea.Quit
		case " ":
			m.svc.Toggle()
			return m, nil
		case "n":
			m.svc.Next()
			return m, nil
		case "b":
			m.svc.Previous()
			return m, nil
		case "left":
			m.svc.Seek(-seekStep)
			return m, nil
		case "right":
			m.svc.Seek(seekStep)
			return m, nil
		case "s":
			m.svc.ToggleShuffle()
			return m, nil
		case "m":
			m.svc.CycleRepeatMode()
			return m, nil
		case "R":
			m.svc.SetRadio(!m.svc.RadioEnabled())
			return m, nil
		case "d":
			if cur := m.svc.Current(); cur != nil {
				m.svc.MoveToRadioTrash(cur.ID)
			}
			return m, nil
		case "[":
			m.svc.SetRate(max(m.svc.Rate()-0.25, 0.25))
			return m, nil
		case "]":
			m.svc.SetRate(min(m.svc.Rate()+0.25, 4.0))
			return m, nil
		case "+", "=":
			m.ply.SetVolume(m.ply.Volume() + 0.05)
			return m, nil
		case "-":
			m.ply.SetVolume(m.ply.Volume() - 0.05)
			return m, nil
		case "M":
			m.ply.SetMuted(!m.ply.Muted())
			return m, nil
		case "w":
			opts := m.svc.LyricOptions()
			opts.WordLevel = !opts.WordLevel
			m.svc.SetLyricOptions(opts)
			return m, nil
		case "T":
			opts := m.svc.LyricOptions()
			opts.WordLevelTranslation = !opts.WordLevelTranslation
			m.svc.SetLyricOptions(opts)
			return m, nil
		}

	case lyricview.TimelineMsg, lyricview.LineMsg, lyricview.WordMsg, lyricview.PositionMsg,
		lyricview.ErrorMsg:
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, tea.Batch(cmd, lyricview.Listen(m.svc, m.sub))
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m model) View() string {
	return m.view.View()
}

// shutdown persists the queue and player state, then tears everything
// down in dependency order.
func (m model) shutdown() {
	// The persisted index is into the natural order; the in-memory one
	// follows the shuffle projection, so locate the current track by id.
	tracks := m.svc.QueueTracks()
	index := -1
	if cur := m.svc.Current(); cur != nil {
		for i, t := range tracks {
			if t.ID == cur.ID {
				index = i
				break
			}
		}
	}
	src := m.svc.Source()
	m.stateMgr.SaveQueue(state.QueueState{
		CurrentIndex: index,
		SourceType:   src.Type,
		SourceID:     src.ID,
		RepeatMode:   m.svc.RepeatMode(),
		Shuffle:      m.svc.Shuffle(),
		RadioEnabled: m.svc.RadioEnabled(),
		Tracks:       tracks,
		PlayNext:     m.svc.PlayNextIDs(),
		RadioTrash:   m.rad.Trash(),
	})
	m.stateMgr.SavePlayerState(state.PlayerState{
		Volume: m.ply.Volume(),
		Muted:  m.ply.Muted(),
	})
	if m.mprisSrv != nil {
		m.mprisSrv.Close()
	}
	m.svc.Close()
	m.stateMgr.Close()
}

func main() {
	// ALSA writes errors straight to fd 2, which would tear the TUI.
	stderr.Start()
	defer stderr.Stop()

	m, err := initialModel()
	if err != nil {
		stderr.WriteOriginal(fmt.Sprintf("chorus: %v\n", err))
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		stderr.WriteOriginal(fmt.Sprintf("chorus: %v\n", err))
		os.Exit(1)
	}
}
