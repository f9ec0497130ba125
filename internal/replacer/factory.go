package replacer

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// New constructs a Replacer of capacity frames from a configuration
// selector string: "clock" (the default) or "lruk" / "lruk:<k>". Unknown
// tokens fall back to "clock" with a warning logged through log (a nil
// log is treated as a no-op sink).
func New(selector string, capacity int, log *zap.SugaredLogger) Replacer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	token, kStr, hasArg := strings.Cut(selector, ":")
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "clock":
		return NewClock(capacity)
	case "lruk":
		k := DefaultK
		if hasArg {
			if parsed, err := strconv.Atoi(strings.TrimSpace(kStr)); err == nil {
				k = parsed
			} else {
				log.Warnw("replacer: invalid lruk k, using default", "selector", selector, "default", DefaultK)
			}
		}
		return NewLRUK(capacity, k, nil)
	default:
		log.Warnw("replacer: unknown selector, falling back to clock", "selector", selector)
		return NewClock(capacity)
	}
}
