package player

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
)

var (
	speakerInitialized bool
	speakerSampleRate  beep.SampleRate
)

// Play starts playback of a local file or an http(s) URL. Remote
// sources are fetched fully into memory so the streamer stays seekable.
func (p *Player) Play(source string) error {
	p.Stop()

	// Let any pending Beep callback complete after speaker.Clear().
	time.Sleep(10 * time.Millisecond)

	// Drain any stale finish signal from the previous track.
	select {
	case <-p.finishedCh:
	default:
	}

	rc, ext, err := openSource(source)
	if err != nil {
		return err
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case extMP3:
		streamer, format, err = mp3.Decode(rc)
	case extFLAC:
		streamer, format, err = flac.Decode(rc)
	default:
		rc.Close()
		return fmt.Errorf("unsupported format: %s", ext)
	}
	if err != nil {
		rc.Close()
		return err
	}

	if !speakerInitialized {
		speakerSampleRate = format.SampleRate
		err = speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10))
		if err != nil {
			streamer.Close()
			rc.Close()
			return err
		}
		speakerInitialized = true
	}

	p.closer = rc
	p.streamer = streamer
	p.format = format

	p.ctrl = &beep.Ctrl{Streamer: streamer, Paused: false}
	p.resampler = beep.ResampleRatio(4, playRatio(format.SampleRate, speakerSampleRate, p.rate), p.ctrl)
	p.volume = &effects.Volume{Streamer: p.resampler, Base: 2, Volume: 0, Silent: p.muted}
	if !p.muted {
		p.volume.Volume = p.levelToVolume(p.volumeLevel)
	}

	p.state = Playing
	p.done = make(chan struct{})

	speaker.Play(beep.Seq(p.volume, beep.Callback(func() {
		close(p.done)
		select {
		case p.finishedCh <- struct{}{}:
		default:
		}
		if p.onFinished != nil {
			p.onFinished()
		}
	})))

	return nil
}

// playRatio is the resample ratio that maps a track's samples onto the
// speaker's sample rate at the given playback rate.
func playRatio(track, device beep.SampleRate, rate float64) float64 {
	return float64(track) / float64(device) * rate
}

// openSource opens a local file or fetches a remote URL into memory.
// The returned extension decides the decoder; remote sources without a
// recognizable extension are assumed to be MP3.
func openSource(source string) (io.ReadSeekCloser, string, error) {
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", err
		}
		ext := strings.ToLower(filepath.Ext(u.Path))
		if ext != extMP3 && ext != extFLAC {
			ext = extMP3
		}
		return &memSource{Reader: bytes.NewReader(data)}, ext, nil
	}

	ext := strings.ToLower(filepath.Ext(source))
	f, err := os.Open(source)
	if err != nil {
		return nil, "", err
	}
	if ext == extFLAC {
		// Some taggers prepend ID3v2 tags that the FLAC decoder rejects.
		if err := skipID3v2(f); err != nil {
			f.Close()
			return nil, "", err
		}
	}
	return f, ext, nil
}

type memSource struct {
	*bytes.Reader
}

func (*memSource) Close() error { return nil }

// skipID3v2 skips an ID3v2 tag if present at the beginning of the file.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := r.Read(header)
	if err != nil {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// ID3v2 size is a syncsafe integer in bytes 6-9.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}
