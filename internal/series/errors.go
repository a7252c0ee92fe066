package series

import "errors"

// Error taxonomy shared by every analytics package.
// 커널 함수는 데이터 품질 문제로 panic 하지 않고 NaN 을 반환한다.
var (
	// ErrEmptySeries means no usable element survived cleaning
	ErrEmptySeries = errors.New("series has no usable elements")

	// ErrInsufficientData means the series is too short for the statistic
	ErrInsufficientData = errors.New("series too short for requested statistic")

	// ErrShapeMismatch means two parallel inputs differ in length
	ErrShapeMismatch = errors.New("series lengths differ")

	// ErrUnsorted means timestamps are not strictly increasing
	ErrUnsorted = errors.New("timestamps must be strictly increasing")

	// ErrNoDates means a calendar operation was requested on an undated series
	ErrNoDates = errors.New("series has no timestamps")
)
