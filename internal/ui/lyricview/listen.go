package lyricview

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mlevasseur/chorus/internal/errmsg"
	"github.com/mlevasseur/chorus/internal/playback"
)

// Listen returns a command that waits for the next playback event and
// converts it to a lyric view message. The program re-issues it after
// every delivery to keep the stream flowing.
func Listen(svc playback.Service, sub *playback.Subscription) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-sub.Done:
				return nil
			case e := <-sub.TrackChanged:
				msg := TimelineMsg{Timeline: svc.Timeline(), WordLevel: svc.LyricOptions().WordLevel}
				if e.Current != nil {
					msg.Title = e.Current.Title
					msg.Artist = e.Current.Artist
				}
				return msg
			case e := <-sub.TimelineChanged:
				msg := TimelineMsg{Timeline: e.Timeline, WordLevel: svc.LyricOptions().WordLevel}
				if cur := svc.Current(); cur != nil {
					msg.Title = cur.Title
					msg.Artist = cur.Artist
				}
				return msg
			case e := <-sub.LineChanged:
				return LineMsg{Index: e.Index}
			case e := <-sub.WordChanged:
				return WordMsg{Channel: e.Channel, Index: e.Index}
			case e := <-sub.PositionChanged:
				return PositionMsg{Position: e.Position, Duration: svc.Duration()}
			case e := <-sub.Error:
				return ErrorMsg{Message: formatEvent(e)}
			case <-sub.StateChanged:
			case <-sub.QueueChanged:
			case <-sub.ModeChanged:
			}
		}
	}
}

// formatEvent turns a playback error event into a footer message.
func formatEvent(e playback.ErrorEvent) string {
	var op errmsg.Op
	switch e.Operation {
	case "resolve":
		op = errmsg.OpResolveTrack
	case "radio":
		op = errmsg.OpRadioFetch
	default:
		op = errmsg.OpPlaybackStart
	}
	context := e.TrackID
	if e.Reason != "" {
		context = e.Reason
	}
	return errmsg.FormatWith(op, context, e.Err)
}
