package tracker

import (
	"gonum.org/v1/gonum/mat"
)

// KalmanFilter is a constant velocity motion model over the xyah
// measurement space (center x, center y, aspect ratio, height).  The
// state vector is 8 dimensional, the measurement plus its velocities
type KalmanFilter struct {
	stdWeightPosition float64
	stdWeightVelocity float64
	// motionMat is the 8x8 state transition matrix
	motionMat *mat.Dense
	// updateMat is the 4x8 projection from state to measurement space
	updateMat *mat.Dense
}

// NewKalmanFilter initializes and returns a new KalmanFilter
func NewKalmanFilter(stdWeightPosition, stdWeightVelocity float64) *KalmanFilter {

	const ndim = 4

	motionMat := mat.NewDense(2*ndim, 2*ndim, nil)

	for i := 0; i < 2*ndim; i++ {
		motionMat.Set(i, i, 1.0)
	}

	// unit timestep between frames
	for i := 0; i < ndim; i++ {
		motionMat.Set(i, ndim+i, 1.0)
	}

	updateMat := mat.NewDense(ndim, 2*ndim, nil)

	for i := 0; i < ndim; i++ {
		updateMat.Set(i, i, 1.0)
	}

	return &KalmanFilter{
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
		motionMat:         motionMat,
		updateMat:         updateMat,
	}
}

// KalmanState is the per track filter state, the estimated mean and its
// covariance
type KalmanState struct {
	mean *mat.VecDense
	cov  *mat.Dense
}

// Xyah returns the current position estimate in measurement space
func (s *KalmanState) Xyah() [4]float64 {
	return [4]float64{
		s.mean.AtVec(0),
		s.mean.AtVec(1),
		s.mean.AtVec(2),
		s.mean.AtVec(3),
	}
}

// diagonal builds a square matrix with the squares of std on the diagonal
func diagonal(std []float64) *mat.Dense {

	d := mat.NewDense(len(std), len(std), nil)

	for i, v := range std {
		d.Set(i, i, v*v)
	}

	return d
}

// Initiate creates the filter state for a newly observed measurement.
// Velocities start at zero with high uncertainty
func (kf *KalmanFilter) Initiate(measurement [4]float64) *KalmanState {

	mean := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		mean.SetVec(i, measurement[i])
	}

	h := measurement[3]

	std := []float64{
		2 * kf.stdWeightPosition * h,
		2 * kf.stdWeightPosition * h,
		1e-2,
		2 * kf.stdWeightPosition * h,
		10 * kf.stdWeightVelocity * h,
		10 * kf.stdWeightVelocity * h,
		1e-5,
		10 * kf.stdWeightVelocity * h,
	}

	return &KalmanState{
		mean: mean,
		cov:  diagonal(std),
	}
}

// Predict advances the state estimate by one frame
func (kf *KalmanFilter) Predict(s *KalmanState) {

	h := s.mean.AtVec(3)

	std := []float64{
		kf.stdWeightPosition * h,
		kf.stdWeightPosition * h,
		1e-2,
		kf.stdWeightPosition * h,
		kf.stdWeightVelocity * h,
		kf.stdWeightVelocity * h,
		1e-5,
		kf.stdWeightVelocity * h,
	}

	motionCov := diagonal(std)

	var mean mat.VecDense
	mean.MulVec(kf.motionMat, s.mean)
	s.mean.CopyVec(&mean)

	var fp, cov mat.Dense
	fp.Mul(kf.motionMat, s.cov)
	cov.Mul(&fp, kf.motionMat.T())
	cov.Add(&cov, motionCov)
	s.cov.Copy(&cov)
}

// Update folds a new measurement into the state estimate.  On a singular
// innovation covariance the measurement is rejected and an error returned
func (kf *KalmanFilter) Update(s *KalmanState, measurement [4]float64) error {

	h := measurement[3]

	std := []float64{
		kf.stdWeightPosition * h,
		kf.stdWeightPosition * h,
		1e-1,
		kf.stdWeightPosition * h,
	}

	measureCov := diagonal(std)

	// project state into measurement space
	var hp mat.Dense
	hp.Mul(kf.updateMat, s.cov)

	var innovCov mat.Dense
	innovCov.Mul(&hp, kf.updateMat.T())
	innovCov.Add(&innovCov, measureCov)

	// gain transposed, solved from the symmetric innovation covariance
	var gainT mat.Dense

	if err := gainT.Solve(&innovCov, &hp); err != nil {
		return err
	}

	z := mat.NewVecDense(4, measurement[:])

	var projected mat.VecDense
	projected.MulVec(kf.updateMat, s.mean)

	var innovation mat.VecDense
	innovation.SubVec(z, &projected)

	var correction mat.VecDense
	correction.MulVec(gainT.T(), &innovation)
	s.mean.AddVec(s.mean, &correction)

	var khp mat.Dense
	khp.Mul(gainT.T(), &hp)
	s.cov.Sub(s.cov, &khp)

	return nil
}
