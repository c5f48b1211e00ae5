package binlog

import "encoding/hex"

// sourceIDGroups are the byte lengths of the five hyphen-separated groups
// in a formatted source id: aabbccdd-eeff-gghh-iijj-kkllmmnnoopp.
var sourceIDGroups = [5]int{4, 2, 2, 2, 6}

// formatSourceID renders a source-id byte array (nominally 16 bytes, a raw
// UUID) as aabbccdd-eeff-gghh-iijj-kkllmmnnoopp, grouping bytes in lengths
// 4-2-2-2-6. Inputs shorter than 16 bytes are rendered with however many
// complete groups their length covers, plus a final short group; inputs
// longer than 16 bytes are truncated to the first 16.
func formatSourceID(sid []byte) string {
	if len(sid) > 16 {
		sid = sid[:16]
	}

	var out []byte
	offset := 0
	for i, groupLen := range sourceIDGroups {
		if offset >= len(sid) {
			break
		}
		if i > 0 {
			out = append(out, '-')
		}

		end := offset + groupLen
		if end > len(sid) {
			end = len(sid)
		}

		out = append(out, []byte(hex.EncodeToString(sid[offset:end]))...)
		offset = end
	}

	return string(out)
}
