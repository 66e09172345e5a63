package wcs

import (
	"fmt"
	"math"
)

const (
	d2r = math.Pi / 180.0
	r2d = 180.0 / math.Pi
)

// zenithal is one of the zenithal (azimuthal) projections. Native latitude
// of the reference point is 90 degrees for all of them, so they differ only
// in how the native colatitude maps to a radius on the projection plane.
type zenithal interface {
	// radius maps native latitude theta (degrees) to R (degrees)
	radius(theta float64) (float64, error)

	// theta maps R (degrees) back to native latitude (degrees)
	theta(r float64) (float64, error)
}

type gnomonic struct{}      // TAN
type orthographic struct{}  // SIN
type equidistant struct{}   // ARC
type stereographic struct{} // STG
type equalArea struct{}     // ZEA

var projections = map[string]zenithal{
	"TAN": gnomonic{},
	"SIN": orthographic{},
	"ARC": equidistant{},
	"STG": stereographic{},
	"ZEA": equalArea{},
}

func (gnomonic) radius(theta float64) (float64, error) {
	if theta <= 0 {
		return 0, fmt.Errorf("%w: native latitude %.6f is not visible in TAN", ErrProjection, theta)
	}
	return r2d * math.Cos(theta*d2r) / math.Sin(theta*d2r), nil
}

func (gnomonic) theta(r float64) (float64, error) {
	return math.Atan2(r2d, r) * r2d, nil
}

func (orthographic) radius(theta float64) (float64, error) {
	if theta < 0 {
		return 0, fmt.Errorf("%w: native latitude %.6f lies on the far hemisphere in SIN", ErrProjection, theta)
	}
	return r2d * math.Cos(theta*d2r), nil
}

func (orthographic) theta(r float64) (float64, error) {
	s := r / r2d
	if s > 1 {
		// allow rounding noise at the limb
		if s > 1+1e-13 {
			return 0, fmt.Errorf("%w: radius %.6f is outside the SIN disk", ErrProjection, r)
		}
		s = 1
	}
	return math.Acos(s) * r2d, nil
}

func (equidistant) radius(theta float64) (float64, error) {
	return 90 - theta, nil
}

func (equidistant) theta(r float64) (float64, error) {
	if r > 180 {
		return 0, fmt.Errorf("%w: radius %.6f is outside the ARC domain", ErrProjection, r)
	}
	return 90 - r, nil
}

func (stereographic) radius(theta float64) (float64, error) {
	if theta <= -90 {
		return 0, fmt.Errorf("%w: the antipode is not representable in STG", ErrProjection)
	}
	return 2 * r2d * math.Tan((90-theta)/2*d2r), nil
}

func (stereographic) theta(r float64) (float64, error) {
	return 90 - 2*math.Atan(r/(2*r2d))*r2d, nil
}

func (equalArea) radius(theta float64) (float64, error) {
	return 2 * r2d * math.Sin((90-theta)/2*d2r), nil
}

func (equalArea) theta(r float64) (float64, error) {
	s := r / (2 * r2d)
	if s > 1 {
		if s > 1+1e-13 {
			return 0, fmt.Errorf("%w: radius %.6f is outside the ZEA disk", ErrProjection, r)
		}
		s = 1
	}
	return 90 - 2*math.Asin(s)*r2d, nil
}

// planeToNative converts projection plane coordinates (degrees) to native
// spherical coordinates (phi, theta) in degrees
func planeToNative(p zenithal, x, y float64) (phi, theta float64, err error) {
	r := math.Hypot(x, y)
	if r == 0 {
		phi = 0
	} else {
		phi = math.Atan2(x, -y) * r2d
	}
	theta, err = p.theta(r)
	return phi, theta, err
}

// nativeToPlane is the inverse of planeToNative
func nativeToPlane(p zenithal, phi, theta float64) (x, y float64, err error) {
	r, err := p.radius(theta)
	if err != nil {
		return 0, 0, err
	}
	return r * math.Sin(phi*d2r), -r * math.Cos(phi*d2r), nil
}

// nativeToCelestial rotates native spherical coordinates to celestial ones
// given the celestial coordinates of the native pole and its native longitude
func nativeToCelestial(phi, theta, alphaP, deltaP, phiP float64) (alpha, delta float64) {
	sinT, cosT := math.Sincos(theta * d2r)
	sinDp, cosDp := math.Sincos(deltaP * d2r)
	sinDphi, cosDphi := math.Sincos((phi - phiP) * d2r)

	alpha = alphaP + math.Atan2(-cosT*sinDphi, sinT*cosDp-cosT*sinDp*cosDphi)*r2d
	delta = math.Asin(clampUnit(sinT*sinDp+cosT*cosDp*cosDphi)) * r2d
	return normalizeLongitude(alpha), delta
}

// celestialToNative is the inverse of nativeToCelestial
func celestialToNative(alpha, delta, alphaP, deltaP, phiP float64) (phi, theta float64) {
	sinD, cosD := math.Sincos(delta * d2r)
	sinDp, cosDp := math.Sincos(deltaP * d2r)
	sinDa, cosDa := math.Sincos((alpha - alphaP) * d2r)

	phi = phiP + math.Atan2(-cosD*sinDa, sinD*cosDp-cosD*sinDp*cosDa)*r2d
	theta = math.Asin(clampUnit(sinD*sinDp+cosD*cosDp*cosDa)) * r2d
	return wrap180(phi), theta
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// normalizeLongitude maps a longitude into [0, 360)
func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon -= 360
	}
	return lon
}

// wrap180 maps an angle into [-180, 180)
func wrap180(a float64) float64 {
	return normalizeLongitude(a+180) - 180
}
