package detection

import (
	"github.com/chewxy/math32"
)

// Keypoint is one joint of the person skeleton: position plus a confidence
// logit.
type Keypoint struct {
	X, Y  float32
	Score float32
}

// Keypoints is the fixed 17-joint person topology, indexed by the Joint*
// constants.
type Keypoints []Keypoint

// Joint indices of the person skeleton.
const (
	JointNose = iota
	JointLeftEye
	JointRightEye
	JointLeftEar
	JointRightEar
	JointLeftShoulder
	JointRightShoulder
	JointLeftElbow
	JointRightElbow
	JointLeftWrist
	JointRightWrist
	JointLeftHip
	JointRightHip
	JointLeftKnee
	JointRightKnee
	JointLeftAnkle
	JointRightAnkle

	NumJoints
)

// JointNames lists the skeleton joints in index order.
var JointNames = []string{
	"nose",
	"left_eye", "right_eye",
	"left_ear", "right_ear",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
}

// Bones is the fixed list of joint pairs connected when rendering the
// skeleton. Bone order is stable; renderers key colors off the index.
var Bones = [][2]int{
	{JointLeftEye, JointRightEye},
	{JointLeftEye, JointNose},
	{JointRightEye, JointNose},
	{JointRightEye, JointRightEar},
	{JointLeftEye, JointLeftEar},
	{JointRightShoulder, JointRightElbow},
	{JointRightElbow, JointRightWrist},
	{JointLeftShoulder, JointLeftElbow},
	{JointLeftElbow, JointLeftWrist},
	{JointRightHip, JointRightKnee},
	{JointRightKnee, JointRightAnkle},
	{JointLeftHip, JointLeftKnee},
	{JointLeftKnee, JointLeftAnkle},
	{JointRightShoulder, JointLeftShoulder},
	{JointRightHip, JointLeftHip},
}

// Midpoint synthesizes a joint between two others: averaged position, and
// the minimum of the two confidences so a weak endpoint cannot be hidden by
// a strong partner.
func Midpoint(a, b Keypoint) Keypoint {
	return Keypoint{
		X:     (a.X + b.X) / 2,
		Y:     (a.Y + b.Y) / 2,
		Score: math32.Min(a.Score, b.Score),
	}
}

// MidShoulder returns the synthetic joint between the two shoulders.
func (k Keypoints) MidShoulder() Keypoint {
	return Midpoint(k[JointLeftShoulder], k[JointRightShoulder])
}

// MidHip returns the synthetic joint between the two hips.
func (k Keypoints) MidHip() Keypoint {
	return Midpoint(k[JointLeftHip], k[JointRightHip])
}
