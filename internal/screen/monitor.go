package screen

// MonitorIndex returns the 1-based monitor holding horizontal coordinate x.
// It assumes monitors of equal width laid out left to right starting at
// x=0, which does not hold for mixed resolutions or vertical stacks.
func MonitorIndex(x, monitorWidth int) int {
	if monitorWidth <= 0 || x < 0 {
		return 1
	}
	return x/monitorWidth + 1
}
