package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/rs/zerolog"

	"github.com/edvin/eventrelay/internal/model"
)

// LogInspector reads the newest relayed event from the verification log group.
type LogInspector struct {
	logs   LogsAPI
	logger zerolog.Logger
}

func NewLogInspector(logger zerolog.Logger, logs LogsAPI) *LogInspector {
	return &LogInspector{
		logs:   logs,
		logger: logger.With().Str("component", "log-inspector").Logger(),
	}
}

// MostRecentLogStream returns the stream with the latest event in the group.
func (l *LogInspector) MostRecentLogStream(ctx context.Context, logGroup string) (string, error) {
	out, err := l.logs.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName: aws.String(logGroup),
		OrderBy:      cwltypes.OrderByLastEventTime,
		Descending:   aws.Bool(true),
		Limit:        aws.Int32(1),
	})
	if err != nil {
		return "", wrapErr("describe log streams", err)
	}
	if len(out.LogStreams) == 0 || aws.ToString(out.LogStreams[0].LogStreamName) == "" {
		return "", &model.LogEmptyError{LogGroup: logGroup}
	}

	name := aws.ToString(out.LogStreams[0].LogStreamName)
	l.logger.Debug().Str("log_stream", name).Msg("most recent log stream")
	return name, nil
}

// MostRecentLogEvent returns the message of the newest event in the stream.
func (l *LogInspector) MostRecentLogEvent(ctx context.Context, stream, logGroup string) (string, error) {
	out, err := l.logs.GetLogEvents(ctx, &cloudwatchlogs.GetLogEventsInput{
		LogGroupName:  aws.String(logGroup),
		LogStreamName: aws.String(stream),
		StartFromHead: aws.Bool(false),
	})
	if err != nil {
		return "", wrapErr("get log events", err)
	}
	if len(out.Events) == 0 {
		return "", &model.LogEmptyError{LogGroup: logGroup, Stream: stream}
	}

	// Events come back oldest first; keep the latest timestamp, preferring
	// the later entry on ties.
	newest := out.Events[0]
	for _, ev := range out.Events[1:] {
		if aws.ToInt64(ev.Timestamp) >= aws.ToInt64(newest.Timestamp) {
			newest = ev
		}
	}

	l.logger.Debug().Str("log_stream", stream).Int64("timestamp", aws.ToInt64(newest.Timestamp)).Msg("most recent log event")
	return aws.ToString(newest.Message), nil
}
