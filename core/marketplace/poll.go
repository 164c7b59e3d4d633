package marketplace

import (
	"context"
	"errors"

	"bosko/core/apperr"
	"bosko/logger"

	"github.com/cenkalti/backoff/v4"
)

var errStillProcessing = errors.New("audio still processing")

// WaitForProcessing polls the track until its audio bundle is COMPLETE.
// ERROR or a COMPLETE bundle without a stream stops polling immediately; running out of attempts is a timeout.
func (c *Client) WaitForProcessing(ctx context.Context, token, trackID string) error {
	attempts := 0
	operation := func() error {
		attempts++
		state, err := c.GetTrack(ctx, token, trackID)
		if err != nil {
			return backoff.Permanent(err)
		}

		switch state.Progress {
		case ProgressComplete:
			if !state.HasStream {
				return backoff.Permanent(apperr.Protocol("marketplace finished processing without an audio stream", nil))
			}
			return nil
		case ProgressError:
			msg := "marketplace failed to process audio"
			if state.BundleError != "" {
				msg += ": " + state.BundleError
			}
			return backoff.Permanent(apperr.Protocol(msg, nil))
		default:
			logger.Debug("marketplace audio still processing",
				logger.String("remote_track", trackID),
				logger.String("progress", state.Progress),
				logger.Int("attempt", attempts))
			return errStillProcessing
		}
	}

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.PollInterval), uint64(c.cfg.PollAttempts-1))
	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	if errors.Is(err, errStillProcessing) {
		return apperr.Timeout("marketplace audio processing did not complete after %d attempts", attempts)
	}
	return err
}
