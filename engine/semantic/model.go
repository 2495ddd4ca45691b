package semantic

import (
	"strconv"

	"github.com/google/uuid"
)

// Payload keys stored with every point.
const (
	payloadTitle = "title"
	payloadIndex = "catalog_index"
)

// pointNamespace scopes the name-based point ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/WessleyAI/marquee/movies"))

// Point is one catalog record as stored in Qdrant.
type Point struct {
	ID     string
	Index  int
	Title  string
	Vector []float32
}

// PointID derives a stable point id from a record's catalog position and
// title, so re-syncing the same snapshot overwrites rather than duplicates.
func PointID(index int, title string) string {
	return uuid.NewSHA1(pointNamespace, []byte(strconv.Itoa(index)+"\x00"+title)).String()
}
