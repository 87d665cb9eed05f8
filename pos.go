package anvil

import (
	"regexp"
	"strconv"

	"github.com/yehan2002/errors"
)

// ChunkPos the absolute position of a chunk.
type ChunkPos struct{ X, Z int32 }

// Region returns the position of the region file that stores the chunk.
func (c ChunkPos) Region() RegionPos { return RegionPos{c.X >> 5, c.Z >> 5} }

// Local returns the position of the chunk inside its region file.
func (c ChunkPos) Local() (x, z uint8) { return uint8(c.X & 0x1f), uint8(c.Z & 0x1f) }

// RegionPos the position of a region file.
// Normally the x and z values are the x and z values in the filename of the region file.
type RegionPos struct{ X, Z int32 }

// Chunk returns the absolute position of the chunk at x,z in this region.
func (r RegionPos) Chunk(x, z uint8) ChunkPos {
	return ChunkPos{r.X<<5 | int32(x&0x1f), r.Z<<5 | int32(z&0x1f)}
}

// index returns the position of the entry for x,z in the header tables.
func index(x, z uint8) int { return int(x&0x1f) | int(z&0x1f)<<5 }

var regionName = regexp.MustCompile(`^r\.(-?[0-9]+)\.(-?[0-9]+)\.mc[ar]$`)

// ParseRegionName parses the position of a region file from its name.
// Names have the form `r.<x>.<z>.mca` or `r.<x>.<z>.mcr`.
func ParseRegionName(name string) (pos RegionPos, err error) {
	m := regionName.FindStringSubmatch(name)
	if m == nil {
		return pos, errors.Error("anvil: invalid region file name " + strconv.Quote(name))
	}

	var x, z int64
	if x, err = strconv.ParseInt(m[1], 10, 32); err == nil {
		if z, err = strconv.ParseInt(m[2], 10, 32); err == nil {
			return RegionPos{int32(x), int32(z)}, nil
		}
	}
	return pos, errors.Wrap("anvil: invalid region file name "+strconv.Quote(name), err)
}
