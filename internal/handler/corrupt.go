// internal/handler/corrupt.go
package handler

// binCorrupter rewrites bin data on a fixed schedule: every 11th call, then
// four calls later, after which the counter jumps by 7. The same call
// sequence always yields the same bins.
type binCorrupter struct {
	enabled bool
	count   int // setBinDataCount
	next    int // nextCorruptBinCount
}

// corrupt returns the bin to store and whether it was changed.
func (c *binCorrupter) corrupt(bin int) (int, bool) {
	if !c.enabled {
		return bin, false
	}

	c.count++
	modTrigger := c.count%11 == 0
	if !modTrigger && c.count != c.next {
		return bin, false
	}

	bin = (bin + c.count) % 100
	if modTrigger {
		c.next = c.count + 4
	} else {
		c.count += 7
	}
	return bin, true
}
