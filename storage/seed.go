package storage

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/WhitehatD/Student-Identity-Consent/internal/ids"
	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

var defaultCourses = []model.Course{
	{
		CourseName:  "Introduction to Computer Science",
		Description: "Algorithms, data structures and the basics of programming",
	},
	{
		CourseName:  "Linear Algebra",
		Description: "Vector spaces, matrices and linear transformations",
	},
	{
		CourseName:  "Blockchain Fundamentals",
		Description: "Distributed ledgers, consensus and smart contracts",
	},
	{
		CourseName:  "Databases",
		Description: "Relational modelling, SQL and transactions",
	},
	{
		CourseName:  "Computer Networks",
		Description: "Protocols, routing and the internet stack",
	},
	{
		CourseName:  "Statistics",
		Description: "Probability, estimation and hypothesis testing",
	},
}

var (
	demoCertificateNames = []string{
		"Bachelor of Science",
		"Master of Arts",
		"Certified Blockchain Developer",
		"Data Science Professional",
	}
	demoInstitutions = []string{
		"Tech University",
		"State College",
		"Crypto Academy",
		"Global Institute",
	}
)

// maxCertificateAge bounds how far in the past a demo certificate is issued
const maxCertificateAge = 10_000_000 * time.Second

// Seeder fills the database with demo data; it is safe for concurrent use
type Seeder struct {
	db   *gorm.DB
	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

// Seeder returns a Seeder using a randomly seeded source
func (s *Storage) Seeder() *Seeder {
	return &Seeder{
		db:   s.db,
		rand: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:  time.Now,
	}
}

// SeedCourses creates the demo course catalogue if there are no courses yet.
// It returns the number of created courses.
func (s *Seeder) SeedCourses(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Course{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "could not count courses")
	}
	if count > 0 {
		return 0, nil
	}
	courses := make([]model.Course, len(defaultCourses))
	copy(courses, defaultCourses)
	if err := s.db.WithContext(ctx).Create(&courses).Error; err != nil {
		return 0, errors.Wrap(err, "could not create courses")
	}
	log.WithField("courses", len(courses)).Info("Seeded course catalogue")
	return len(courses), nil
}

// SeedStudent stores 2 to 4 random grades and one random certificate under
// cid
func (s *Seeder) SeedStudent(ctx context.Context, cid string) error {
	courses, err := (&RecordStorage{db: s.db}).Courses(ctx)
	if err != nil {
		return err
	}
	grades, cert := s.demoRecords(cid, courses)
	return s.db.WithContext(ctx).Transaction(
		func(tx *gorm.DB) error {
			if len(grades) > 0 {
				if err := tx.Create(&grades).Error; err != nil {
					return errors.Wrap(err, "could not create grades")
				}
			}
			if err := tx.Create(&cert).Error; err != nil {
				return errors.Wrap(err, "could not create certificate")
			}
			log.WithFields(
				log.Fields{
					"cid":          cid,
					"grades":       len(grades),
					"certificates": 1,
				},
			).Debug("Seeded demo records")
			return nil
		},
	)
}

func (s *Seeder) demoRecords(cid string, courses []model.Course) ([]model.Grade, model.Certificate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var grades []model.Grade
	if len(courses) > 0 {
		n := min(2+s.rand.IntN(3), len(courses))
		for _, i := range s.rand.Perm(len(courses))[:n] {
			grades = append(
				grades, model.Grade{
					WalletCID: cid,
					CourseID:  courses[i].CourseID,
					Points:    math.Round((60+s.rand.Float64()*40)*10) / 10,
				},
			)
		}
	}
	issued := s.now().Add(-time.Duration(s.rand.Int64N(int64(maxCertificateAge))))
	cert := model.Certificate{
		WalletCID:          cid,
		CertificateName:    demoCertificateNames[s.rand.IntN(len(demoCertificateNames))],
		IssuingInstitution: demoInstitutions[s.rand.IntN(len(demoInstitutions))],
		IssueDate:          datatypes.Date(issued.UTC().Truncate(24 * time.Hour)),
		TranscriptURI:      fmt.Sprintf("ipfs://Qm%s", strings.ToLower(ids.New())),
	}
	return grades, cert
}
