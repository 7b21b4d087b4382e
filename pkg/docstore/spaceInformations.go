package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
)

func (sc *StoreConfig) checkConfig() error {
	if len(sc.Paths) == 0 {
		return fmt.Errorf("no path provided in configuration")
	}

	path := sc.Paths[0] // Currently only the first path is utilized
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("path does not exist")
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory")
	}

	var stat syscall.Statfs_t
	syscall.Statfs(path, &stat)

	// Available blocks * size per block gives available space in bytes
	availableSpaceInGB := (stat.Bavail * uint64(stat.Bsize)) / (1024 * 1024 * 1024)
	if int(availableSpaceInGB) < sc.MinimumFreeSpace {
		return fmt.Errorf("not enough space available on disk")
	}

	return nil
}

// getDiskUsageStats gets the disk usage statistics of the given path
func getDiskUsageStats(path string) (disk syscall.Statfs_t, err error) {
	err = syscall.Statfs(path, &disk)
	return
}

// calculateDirectorySize calculates the total size of files within a directory
func calculateDirectorySize(path string) (size int64, err error) {
	err = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return
}

// displayDiskUsage displays the disk usage information using structured logging
func displayDiskUsage(paths []string) error {
	for _, path := range paths {
		disk, err := getDiskUsageStats(path)
		if err != nil {
			log.WithFields(logrus.Fields{
				"path": path,
			}).Errorf("Error retrieving disk usage stats: %v", err)
			return err
		}

		totalSpace := float64(disk.Blocks*uint64(disk.Bsize)) / 1e9
		freeSpace := float64(disk.Bfree*uint64(disk.Bsize)) / 1e9
		usedSpace := totalSpace - freeSpace

		pathSize, err := calculateDirectorySize(path)
		if err != nil {
			log.WithFields(logrus.Fields{
				"path": path,
			}).Errorf("Error calculating directory size: %v", err)
			return err
		}
		pathUsage := float64(pathSize) / 1e9

		log.WithFields(logrus.Fields{
			"Path":        path,
			"Total (GB)":  fmt.Sprintf("%.2f", totalSpace),
			"Used (GB)":   fmt.Sprintf("%.2f", usedSpace),
			"Free (GB)":   fmt.Sprintf("%.2f", freeSpace),
			"Usage by DB": fmt.Sprintf("%.2f", pathUsage),
		}).Info("Disk Usage")
	}

	return nil
}
