// Package catalog хранит неизменяемый каталог курсов и банк экзаменов.
// По умолчанию каталог встроен в бинарник, путь к внешнему файлу можно задать в конфиге.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/magabrotheeeer/course-progress/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrExamNotFound — для части курса нет экзамена.
var ErrExamNotFound = errors.New("exam not found")

type file struct {
	Courses []models.Course `yaml:"courses"`
	Exams   []models.Exam   `yaml:"exams"`
}

type examKey struct {
	course int
	part   int
}

// Catalog — курсы, упорядоченные по id, и экзамены по частям.
type Catalog struct {
	courses []models.Course
	byID    map[int]models.Course
	exams   map[examKey]models.Exam
}

// Default возвращает встроенный каталог. Ошибка во встроенном файле — ошибка сборки,
// поэтому функция паникует.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog.Default: %v", err))
	}
	return c
}

// Load читает каталог из файла path. Пустой path означает встроенный каталог.
func Load(path string) (*Catalog, error) {
	const op = "catalog.Load"
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Parse разбирает YAML каталога. Неизвестные поля считаются опечаткой и отклоняются.
func Parse(data []byte) (*Catalog, error) {
	const op = "catalog.Parse"

	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validate(f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := &Catalog{
		courses: slices.Clone(f.Courses),
		byID:    make(map[int]models.Course, len(f.Courses)),
		exams:   make(map[examKey]models.Exam, len(f.Exams)),
	}
	slices.SortFunc(c.courses, func(a, b models.Course) int { return a.ID - b.ID })
	for _, course := range c.courses {
		c.byID[course.ID] = course
	}
	for _, e := range f.Exams {
		c.exams[examKey{course: e.CourseID, part: e.PartID}] = e
	}
	return c, nil
}

func validate(f file) error {
	if len(f.Courses) == 0 {
		return errors.New("no courses")
	}
	seen := make(map[int]bool, len(f.Courses))
	for _, course := range f.Courses {
		if course.ID <= 0 {
			return fmt.Errorf("course id %d must be positive", course.ID)
		}
		if seen[course.ID] {
			return fmt.Errorf("duplicate course id %d", course.ID)
		}
		seen[course.ID] = true
		if len(course.Parts) == 0 {
			return fmt.Errorf("course %d has no parts", course.ID)
		}
		for i, p := range course.Parts {
			if p.ID != i+1 {
				return fmt.Errorf("course %d: part ids must be dense from 1, got %d at position %d", course.ID, p.ID, i+1)
			}
		}
	}

	exams := make(map[examKey]bool, len(f.Exams))
	for _, e := range f.Exams {
		key := examKey{course: e.CourseID, part: e.PartID}
		if exams[key] {
			return fmt.Errorf("duplicate exam for course %d part %d", e.CourseID, e.PartID)
		}
		exams[key] = true

		if !seen[e.CourseID] {
			return fmt.Errorf("exam references unknown course %d", e.CourseID)
		}
		if e.PassScore < 0 || e.PassScore > len(e.Questions) {
			return fmt.Errorf("exam %d/%d: pass_score %d out of range", e.CourseID, e.PartID, e.PassScore)
		}
		for i, q := range e.Questions {
			if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
				return fmt.Errorf("exam %d/%d question %d: correct_index out of range", e.CourseID, e.PartID, i)
			}
		}
	}
	return nil
}

// Course возвращает курс по id.
func (c *Catalog) Course(id int) (models.Course, bool) {
	course, ok := c.byID[id]
	return course, ok
}

// Courses возвращает все курсы по возрастанию id.
func (c *Catalog) Courses() []models.Course {
	return slices.Clone(c.courses)
}

// Exam возвращает экзамен по части курса.
func (c *Catalog) Exam(courseID, partID int) (models.Exam, error) {
	e, ok := c.exams[examKey{course: courseID, part: partID}]
	if !ok {
		return models.Exam{}, fmt.Errorf("course %d part %d: %w", courseID, partID, ErrExamNotFound)
	}
	return e, nil
}
