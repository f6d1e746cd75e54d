// 包 ipgeo：由 GeoIP2/GeoLite2 City 库得到 IP 的定位精度圆，并转为可生成签名的多边形
package ipgeo

import (
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"geohash-signature/internal/geometry"
	"geohash-signature/internal/logger"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
)

var (
	ErrInvalidIP  = errors.New("invalid ip")
	ErrNoLocation = errors.New("no location for ip")
)

const (
	kmPerDegreeLat = 111.32
	// MinRadiusKm 库中精度半径缺失时使用
	MinRadiusKm = 1.0
	// DefaultSegments 圆的折线段数
	DefaultSegments = 32
)

// Area：IP 的定位结果
type Area struct {
	IP       string  `json:"ip"`
	Country  string  `json:"country"`
	City     string  `json:"city"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusKm float64 `json:"radius_km"`
}

// Info：数据库元信息
type Info struct {
	DatabaseType string    `json:"database_type"`
	IPVersion    uint      `json:"ip_version"`
	BuildTime    time.Time `json:"build_time"`
	Languages    []string  `json:"languages"`
}

// Locator：City 库只读句柄，可并发使用
type Locator struct {
	r    *geoip2.Reader
	meta maxminddb.Metadata
}

func Open(path string) (*Locator, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	l := &Locator{r: r, meta: r.Metadata()}
	logger.L().Info("geoip_open", "path", path, "type", l.meta.DatabaseType, "build_epoch", l.meta.BuildEpoch)
	return l, nil
}

func (l *Locator) Close() error { return l.r.Close() }

func (l *Locator) Info() Info {
	return infoFrom(l.meta)
}

func infoFrom(m maxminddb.Metadata) Info {
	return Info{
		DatabaseType: m.DatabaseType,
		IPVersion:    m.IPVersion,
		BuildTime:    time.Unix(int64(m.BuildEpoch), 0).UTC(),
		Languages:    m.Languages,
	}
}

// Lookup：查询 IP 的坐标与精度半径；库中无坐标返回 ErrNoLocation
func (l *Locator) Lookup(raw string) (Area, error) {
	ip := net.ParseIP(raw)
	if ip == nil {
		return Area{}, fmt.Errorf("%w: %q", ErrInvalidIP, raw)
	}
	rec, err := l.r.City(ip)
	if err != nil {
		return Area{}, err
	}
	loc := rec.Location
	if loc.Latitude == 0 && loc.Longitude == 0 && loc.AccuracyRadius == 0 {
		return Area{}, fmt.Errorf("%w: %s", ErrNoLocation, ip)
	}
	return Area{
		IP:       ip.String(),
		Country:  rec.Country.IsoCode,
		City:     rec.City.Names["en"],
		Lat:      loc.Latitude,
		Lon:      loc.Longitude,
		RadiusKm: float64(loc.AccuracyRadius),
	}, nil
}

// Shape：以精度半径为半径的圆（按纬度修正经度方向，实际为经纬度空间内的椭圆）
func (a Area) Shape(segments int) (*geometry.Shape, error) {
	return Circle(a.Lat, a.Lon, a.RadiusKm, segments)
}

// Circle：以 (lat, lon) 为圆心、radiusKm 为半径的近似圆多边形
// 约束：半径小于 MinRadiusKm 时取 MinRadiusKm；纬度限制在 ±89° 以内，避免经度方向跨度发散。
func Circle(lat, lon, radiusKm float64, segments int) (*geometry.Shape, error) {
	if segments < 8 {
		segments = DefaultSegments
	}
	if radiusKm < MinRadiusKm || math.IsNaN(radiusKm) {
		radiusKm = MinRadiusKm
	}
	lat = math.Max(-89, math.Min(89, lat))
	dLat := radiusKm / kmPerDegreeLat
	dLon := dLat / math.Cos(lat*math.Pi/180)
	ring := make([][]float64, 0, segments+1)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		y := math.Max(-90, math.Min(90, lat+dLat*math.Sin(theta)))
		ring = append(ring, []float64{lon + dLon*math.Cos(theta), y})
	}
	return geometry.NewPolygon([][][]float64{ring})
}
