package als

import (
	"math"

	"github.com/rushteam/rankit/core"
)

// solveSPD 求解对称正定线性方程组 A·x = b（Cholesky 分解）。
//
// ALS 的每次行更新都归结为一个 rank×rank 的正规方程求解；
// 正则项 λ·I（λ > 0）保证了矩阵正定，这也是健壮实现中
// λ 不应取到 0 的原因。A 会被原地覆盖为分解结果。
func solveSPD(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)

	// Cholesky 分解：A = L·Lᵗ，L 写入 A 的下三角
	for j := 0; j < n; j++ {
		d := a[j][j]
		for k := 0; k < j; k++ {
			d -= a[j][k] * a[j][k]
		}
		if d <= 0 || math.IsNaN(d) {
			return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInternalError,
				"als: normal equation matrix is not positive definite (is lambda zero?)")
		}
		a[j][j] = math.Sqrt(d)
		for i := j + 1; i < n; i++ {
			s := a[i][j]
			for k := 0; k < j; k++ {
				s -= a[i][k] * a[j][k]
			}
			a[i][j] = s / a[j][j]
		}
	}

	x := make([]float64, n)

	// 前代：L·y = b
	for i := 0; i < n; i++ {
		s := b[i]
		for k := 0; k < i; k++ {
			s -= a[i][k] * x[k]
		}
		x[i] = s / a[i][i]
	}

	// 回代：Lᵗ·x = y
	for i := n - 1; i >= 0; i-- {
		s := x[i]
		for k := i + 1; k < n; k++ {
			s -= a[k][i] * x[k]
		}
		x[i] = s / a[i][i]
	}

	return x, nil
}
