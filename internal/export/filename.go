package export

import (
	"fmt"
	"strings"
	"time"
)

// Filename builds the suggested download name: lesson name + resource label
// + export date, with every non-alphanumeric character replaced by an
// underscore.
func Filename(lessonName, resourceLabel string, when time.Time) string {
	base := fmt.Sprintf("%s %s %s", lessonName, resourceLabel, when.Format("2006-01-02"))
	var sb strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String() + ".pdf"
}
