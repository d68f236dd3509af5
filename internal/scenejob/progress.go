package scenejob

// Progress checkpoints for the job lifecycle. The provider's polling window
// is mapped onto the 40-90 band between rampStart and crawlCap.
const (
	progressQueued     = 0
	progressStarted    = 10
	progressImageReady = 30
	rampStart          = 40
	rampEnd            = 80
	crawlCap           = 90
	progressDownloaded = 92
	progressUploading  = 97
	progressDone       = 100

	// rampWindow is the share of the provider's polling budget treated as
	// the expected generation time. Polls past it only crawl toward the cap.
	rampWindow = 50
)

// mapPollPercent converts the provider's raw poll percentage (0-100 of its
// polling budget) into the job's 40-90 generation band. The first half of
// the budget ramps linearly to 80; overtime polls approach 90 without
// reaching it, so a job that is merely slow never looks finished.
func mapPollPercent(pollPercent int) int {
	if pollPercent <= 0 {
		return rampStart
	}
	if pollPercent <= rampWindow {
		return rampStart + pollPercent*(rampEnd-rampStart)/rampWindow
	}
	p := crawlCap - (crawlCap-rampEnd)*rampWindow/pollPercent
	if p > crawlCap {
		p = crawlCap
	}
	return p
}
