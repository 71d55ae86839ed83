package alignment

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/isae-vo/trajeval/utils"
)

// ScaleLeastSquares returns the factor s minimizing sum |dst_i - s*src_i|^2, which is
// sum(src_i . dst_i) / sum(src_i . src_i).
func ScaleLeastSquares(src, dst []r3.Vector) (float64, error) {
	if len(src) != len(dst) {
		return 0, errors.Wrapf(ErrDegenerateAlignment, "point sets differ in size: %d vs %d", len(src), len(dst))
	}
	var num, den float64
	for i := range src {
		num += src[i].Dot(dst[i])
		den += src[i].Norm2()
	}
	if den == 0 {
		return 0, errors.Wrap(ErrDegenerateAlignment, "predicted translations are all zero")
	}
	s := num / den
	if !utils.IsFinite(s) {
		return 0, errors.Wrapf(ErrDegenerateAlignment, "non-finite scale %v", s)
	}
	return s, nil
}
